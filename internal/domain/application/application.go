package application

import (
	"time"

	"intakeflow/internal/common"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Response is one finalized answer. Rows are written once at submission
// and never updated afterwards.
type Response struct {
	QuestionID   common.UUID `json:"question_id"`
	Answer       string      `json:"answer"`
	TimeToAnswer int         `json:"time_to_answer"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// DraftAnswer is the durable working copy of an answer. It survives
// session expiry and is folded into Responses at submission.
type DraftAnswer struct {
	QuestionID       common.UUID `json:"question_id"`
	Answer           string      `json:"answer"`
	TimeSpentSeconds int         `json:"time_spent_seconds"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type Application struct {
	ID             common.UUID  `json:"id"`
	UserID         common.UUID  `json:"user_id"`
	PositionID     common.UUID  `json:"position_id"`
	Status         Status       `json:"status"`
	StartedAt      time.Time    `json:"started_at"`
	LastUpdatedAt  time.Time    `json:"last_updated_at"`
	SubmittedAt    *time.Time   `json:"submitted_at,omitempty"`
	ExpiresAt      time.Time    `json:"expires_at"`
	TimeToComplete int          `json:"time_to_complete,omitempty"`
	ReviewerID     *common.UUID `json:"reviewer_id,omitempty"`
	ReviewedAt     *time.Time   `json:"reviewed_at,omitempty"`
	Feedback       string       `json:"feedback,omitempty"`
	Responses      []Response   `json:"responses,omitempty"`
}

// IsTerminal reports whether no further status change is possible.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsClosed reports whether the application no longer accepts answers.
func (s Status) IsClosed() bool {
	return s != StatusDraft
}

func IsKnownStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusInReview, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// IsAllowedTransition encodes the forward-only lifecycle:
// draft -> submitted -> in_review -> approved | rejected.
// Rejection straight from submitted is allowed; going backwards never is.
func IsAllowedTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusSubmitted
	case StatusSubmitted:
		return to == StatusInReview || to == StatusApproved || to == StatusRejected
	case StatusInReview:
		return to == StatusApproved || to == StatusRejected
	default:
		return false
	}
}
