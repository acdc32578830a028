package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/application"
	"intakeflow/internal/domain/position"
)

// ReviewService is the staff side: it reads finalized applications and
// moves them through the review half of the lifecycle. It never touches
// sessions or draft answers.
type ReviewService struct {
	applications application.Repository
	positions    position.Repository
	logger       *zap.Logger
	now          func() time.Time
}

func NewReviewService(applications application.Repository, positions position.Repository, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		applications: applications,
		positions:    positions,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ReviewItem is an application with its responses and advisory quality
// scores attached for the reviewer.
type ReviewItem struct {
	Application   application.Application `json:"application"`
	QualityScores map[common.UUID]int     `json:"quality_scores"`
}

func (s *ReviewService) ListByStatus(ctx context.Context, status application.Status) ([]application.Application, error) {
	normalized := application.Status(strings.ToLower(strings.TrimSpace(string(status))))
	if !application.IsKnownStatus(normalized) || normalized == application.StatusDraft {
		return nil, common.NewValidationError("invalid status filter", map[string]string{"status": "status must be submitted, in_review, approved, or rejected"})
	}
	return s.applications.ListByStatus(ctx, normalized)
}

func (s *ReviewService) Get(ctx context.Context, id common.UUID) (*ReviewItem, error) {
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status == application.StatusDraft {
		return nil, common.NewError(common.CodeNotFound, "application is not submitted yet", nil)
	}
	responses, err := s.applications.ListResponses(ctx, id)
	if err != nil {
		return nil, err
	}
	app.Responses = responses

	pos, err := s.positions.GetByID(ctx, app.PositionID)
	if err != nil {
		return nil, err
	}
	answers := make(map[common.UUID]string, len(responses))
	times := make(map[common.UUID]int, len(responses))
	for _, r := range responses {
		answers[r.QuestionID] = r.Answer
		times[r.QuestionID] = r.TimeToAnswer
	}
	return &ReviewItem{
		Application:   *app,
		QualityScores: ScoreAnswers(pos, answers, times),
	}, nil
}

// UpdateStatus advances an application through the review machine.
// Re-applying the current status only refreshes the feedback note; any
// backward or unknown transition is rejected.
func (s *ReviewService) UpdateStatus(ctx context.Context, id common.UUID, status application.Status, reviewerID common.UUID, feedback string) (*application.Application, error) {
	next := application.Status(strings.ToLower(strings.TrimSpace(string(status))))
	if !application.IsKnownStatus(next) || next == application.StatusDraft || next == application.StatusSubmitted {
		return nil, common.NewValidationError("invalid status", map[string]string{"status": "status must be in_review, approved, or rejected"})
	}
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if next == app.Status {
		return s.applications.UpdateStatus(ctx, id, next, reviewerID, feedback, s.now())
	}
	if app.Status.IsTerminal() {
		return nil, common.NewError(common.CodeValidation, "application status is final", nil)
	}
	if !application.IsAllowedTransition(app.Status, next) {
		return nil, common.NewError(common.CodeValidation, "invalid status transition", nil)
	}
	updated, err := s.applications.UpdateStatus(ctx, id, next, reviewerID, feedback, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("application status changed",
		zap.String("application_id", id.String()),
		zap.String("status", string(next)),
		zap.String("reviewer_id", reviewerID.String()))
	return updated, nil
}
