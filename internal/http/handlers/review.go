package handlers

import (
	"net/http"
	"strings"

	"intakeflow/internal/app"
	"intakeflow/internal/common"
	"intakeflow/internal/domain/application"
	"intakeflow/internal/http/middleware"
	"intakeflow/internal/http/response"
)

type ReviewHandler struct {
	reviews *app.ReviewService
}

func NewReviewHandler(reviews *app.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status == "" {
		status = string(application.StatusSubmitted)
	}
	items, err := h.reviews.ListByStatus(r.Context(), application.Status(status))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	applicationID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	item, err := h.reviews.Get(r.Context(), applicationID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

type reviewStatusRequest struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

func (h *ReviewHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	applicationID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req reviewStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.Status == "" {
		response.Error(w, common.NewError(common.CodeValidation, "status is required", nil))
		return
	}
	updated, err := h.reviews.UpdateStatus(r.Context(), applicationID, application.Status(req.Status), reviewerID, req.Feedback)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}
