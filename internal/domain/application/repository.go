package application

import (
	"context"
	"time"

	"intakeflow/internal/common"
)

type Repository interface {
	Create(ctx context.Context, app Application) (*Application, error)
	GetByID(ctx context.Context, id common.UUID) (*Application, error)
	// FindActiveByUserAndPosition returns the single draft application for
	// the pair, or CodeNotFound.
	FindActiveByUserAndPosition(ctx context.Context, userID, positionID common.UUID) (*Application, error)
	// FindLatestByUserAndPosition returns the most recent application for
	// the pair regardless of status, or CodeNotFound.
	FindLatestByUserAndPosition(ctx context.Context, userID, positionID common.UUID) (*Application, error)
	ListByStatus(ctx context.Context, status Status) ([]Application, error)
	ListByUser(ctx context.Context, userID common.UUID) ([]Application, error)

	// Touch bumps last_updated_at and expires_at after a session mutation.
	Touch(ctx context.Context, id common.UUID, lastUpdated, expiresAt time.Time) error

	UpsertDraftAnswer(ctx context.Context, applicationID common.UUID, draft DraftAnswer) error
	ListDraftAnswers(ctx context.Context, applicationID common.UUID) ([]DraftAnswer, error)

	// Submit atomically writes the response rows, flips the status to
	// submitted and clears the draft answers.
	Submit(ctx context.Context, id common.UUID, responses []Response, submittedAt time.Time, timeToComplete int) (*Application, error)

	UpdateStatus(ctx context.Context, id common.UUID, status Status, reviewerID common.UUID, feedback string, reviewedAt time.Time) (*Application, error)
	ListResponses(ctx context.Context, applicationID common.UUID) ([]Response, error)
}
