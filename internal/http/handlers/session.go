package handlers

import (
	"net/http"

	"intakeflow/internal/app"
	"intakeflow/internal/common"
	"intakeflow/internal/http/middleware"
	"intakeflow/internal/http/response"
)

type SessionHandler struct {
	intake *app.IntakeService
}

func NewSessionHandler(intake *app.IntakeService) *SessionHandler {
	return &SessionHandler{intake: intake}
}

// Start opens or resumes the caller's session for the position.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	positionID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	sess, err := h.intake.Start(r.Context(), positionID, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, sess)
}

type sessionView struct {
	Session  any `json:"session"`
	Progress any `json:"progress"`
}

// Get returns the current snapshot plus the progress report.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	positionID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	sess, err := h.intake.Snapshot(r.Context(), positionID, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	report, err := h.intake.Progress(r.Context(), positionID, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, sessionView{Session: sess, Progress: report})
}

type saveAnswerRequest struct {
	QuestionID       string `json:"question_id"`
	Answer           string `json:"answer"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

func (h *SessionHandler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	positionID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req saveAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	questionID, err := common.ParseUUID(req.QuestionID)
	if err != nil {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"question_id": "invalid uuid"}))
		return
	}
	if req.TimeSpentSeconds < 0 {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"time_spent_seconds": "must not be negative"}))
		return
	}
	sess, err := h.intake.SaveAnswer(r.Context(), positionID, userID, questionID, req.Answer, req.TimeSpentSeconds)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, sess)
}

type navigateRequest struct {
	Index int `json:"index"`
}

func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	positionID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req navigateRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	sess, err := h.intake.MoveTo(r.Context(), positionID, userID, req.Index)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	positionID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	submitted, err := h.intake.Submit(r.Context(), positionID, userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, submitted)
}
