package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"intakeflow/internal/common"
)

type errorBody struct {
	Error *common.Error `json:"error"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func Error(w http.ResponseWriter, err error) {
	var typed *common.Error
	if !errors.As(err, &typed) {
		typed = common.NewError(common.CodeInternal, "internal error", err)
	}
	JSON(w, statusFor(typed.Code), errorBody{Error: typed})
}

func statusFor(code common.Code) int {
	switch code {
	case common.CodeValidation:
		return http.StatusBadRequest
	case common.CodeUnauthorized:
		return http.StatusUnauthorized
	case common.CodeForbidden:
		return http.StatusForbidden
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeConflict, common.CodeAlreadyActive, common.CodeApplicationClosed, common.CodePositionInactive:
		return http.StatusConflict
	case common.CodeSessionExpired:
		return http.StatusGone
	case common.CodeIncompleteApplication:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
