package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/application"
	"intakeflow/internal/domain/position"
	"intakeflow/internal/domain/session"
	"intakeflow/internal/observability"
)

// IntakeService owns the candidate-facing lifecycle: starting or resuming
// a session, recording answers, moving the cursor and finalizing the
// application. All state lives in the injected repositories; the service
// itself holds no mutable state and every operation is a single
// read-modify-write.
type IntakeService struct {
	positions    position.Repository
	applications application.Repository
	sessions     session.Store
	metrics      *observability.Metrics
	logger       *zap.Logger
	sessionTTL   time.Duration
	now          func() time.Time
}

func NewIntakeService(positions position.Repository, applications application.Repository, sessions session.Store, metrics *observability.Metrics, logger *zap.Logger, sessionTTL time.Duration) *IntakeService {
	return &IntakeService{
		positions:    positions,
		applications: applications,
		sessions:     sessions,
		metrics:      metrics,
		logger:       logger,
		sessionTTL:   sessionTTL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ProgressReport is the read-only completion view of a session.
type ProgressReport struct {
	Percent          int `json:"percent"`
	AnsweredRequired int `json:"answered_required"`
	TotalRequired    int `json:"total_required"`
	CurrentQuestion  int `json:"current_question"`
}

// Start opens a session for (user, position). Calling it again before
// submission resumes the existing draft: same application id, answers
// kept, cursor recomputed to the first unanswered question. An expired
// session record is rebuilt from the durable draft answers, so expiry
// never loses a saved answer.
func (s *IntakeService) Start(ctx context.Context, positionID, userID common.UUID) (*session.Session, error) {
	pos, err := s.activePosition(ctx, positionID)
	if err != nil {
		return nil, err
	}

	app, err := s.applications.FindLatestByUserAndPosition(ctx, userID, positionID)
	switch {
	case err == nil && app.Status == application.StatusDraft:
		// resume the open draft below
	case err == nil && !app.Status.IsTerminal():
		// submitted or in_review: the record is closed but still live,
		// so opening a second application would break the
		// one-non-terminal-application rule.
		return nil, common.NewError(common.CodeApplicationClosed, "application is already submitted", nil)
	case err == nil || common.Is(err, common.CodeNotFound):
		// no application yet, or only a finished one: open a fresh draft
		app, err = s.createApplication(ctx, userID, positionID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	now := s.now()
	sess, err := s.sessions.Get(ctx, app.ID)
	if err != nil {
		if !common.Is(err, common.CodeNotFound) {
			return nil, err
		}
		sess = nil
	}
	if sess == nil || sess.Expired(now) {
		sess, err = s.rebuildSession(ctx, app, now)
		if err != nil {
			return nil, err
		}
	}
	sess.ResumeCursor(pos)
	sess.Touch(now, s.sessionTTL)
	if err := s.sessions.Save(ctx, sess, s.sessionTTL); err != nil {
		return nil, err
	}
	if err := s.applications.Touch(ctx, app.ID, now, sess.ExpiresAt); err != nil {
		return nil, err
	}
	s.logger.Info("session started",
		zap.String("application_id", app.ID.String()),
		zap.String("position_id", positionID.String()),
		zap.Int("cursor", sess.Current))
	return sess, nil
}

func (s *IntakeService) createApplication(ctx context.Context, userID, positionID common.UUID) (*application.Application, error) {
	now := s.now()
	created, err := s.applications.Create(ctx, application.Application{
		UserID:        userID,
		PositionID:    positionID,
		Status:        application.StatusDraft,
		StartedAt:     now,
		LastUpdatedAt: now,
		ExpiresAt:     now.Add(s.sessionTTL),
	})
	if err == nil {
		return created, nil
	}
	if !common.Is(err, common.CodeConflict) {
		return nil, err
	}
	// Lost a create race. Resolve to the winner; if that record is not
	// ours the conflict is surfaced as a typed error, never inferred from
	// message text.
	existing, findErr := s.applications.FindActiveByUserAndPosition(ctx, userID, positionID)
	if findErr != nil {
		return nil, common.NewError(common.CodeAlreadyActive, "position already has an active application", err)
	}
	return existing, nil
}

func (s *IntakeService) rebuildSession(ctx context.Context, app *application.Application, now time.Time) (*session.Session, error) {
	sess := session.New(app.ID, app.UserID, app.PositionID, now, s.sessionTTL)
	sess.StartTime = app.StartedAt
	drafts, err := s.applications.ListDraftAnswers(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range drafts {
		sess.Answers[d.QuestionID] = d.Answer
		sess.TimePerQuestion[d.QuestionID] = d.TimeSpentSeconds
	}
	return sess, nil
}

// SaveAnswer validates and records one answer. The answer text always
// overwrites, the time spent always accumulates, and the durable draft
// row is written before the session record so a save cannot be undone by
// a later expiry.
func (s *IntakeService) SaveAnswer(ctx context.Context, positionID, userID, questionID common.UUID, answer string, timeSpentSeconds int) (*session.Session, error) {
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	app, sess, err := s.liveSession(ctx, positionID, userID)
	if err != nil {
		return nil, err
	}

	q, idx := pos.QuestionByID(questionID)
	if q == nil {
		return nil, common.NewValidationError("question does not belong to this position", map[string]string{"question_id": questionID.String()})
	}
	if q.Required && strings.TrimSpace(answer) == "" {
		return nil, common.NewValidationError("answer is required", map[string]string{"question_id": questionID.String()})
	}

	now := s.now()
	sess.RecordAnswer(idx, len(pos.Questions), questionID, answer, timeSpentSeconds, now, s.sessionTTL)
	if err := s.applications.UpsertDraftAnswer(ctx, app.ID, application.DraftAnswer{
		QuestionID:       questionID,
		Answer:           answer,
		TimeSpentSeconds: sess.TimePerQuestion[questionID],
		UpdatedAt:        now,
	}); err != nil {
		return nil, err
	}
	if err := s.applications.Touch(ctx, app.ID, now, sess.ExpiresAt); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess, s.sessionTTL); err != nil {
		return nil, err
	}
	return sess, nil
}

// Snapshot returns the current session without mutating anything: no
// application creation, no TTL re-arm. Missing or expired state surfaces
// the usual re-entry errors.
func (s *IntakeService) Snapshot(ctx context.Context, positionID, userID common.UUID) (*session.Session, error) {
	if _, err := s.positions.GetByID(ctx, positionID); err != nil {
		return nil, err
	}
	_, sess, err := s.liveSession(ctx, positionID, userID)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// MoveTo repositions the cursor. Any question may be revisited in any
// order before submission; index == question count is the review step.
func (s *IntakeService) MoveTo(ctx context.Context, positionID, userID common.UUID, index int) (*session.Session, error) {
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	_, sess, err := s.liveSession(ctx, positionID, userID)
	if err != nil {
		return nil, err
	}
	if err := sess.MoveTo(index, len(pos.Questions)); err != nil {
		return nil, err
	}
	sess.Touch(s.now(), s.sessionTTL)
	if err := s.sessions.Save(ctx, sess, s.sessionTTL); err != nil {
		return nil, err
	}
	return sess, nil
}

// Submit finalizes the application. Completeness is recomputed from the
// durable draft answers, so a submit still goes through after the session
// record has expired. On success the drafts become immutable response
// rows and the session record is dropped.
func (s *IntakeService) Submit(ctx context.Context, positionID, userID common.UUID) (*application.Application, error) {
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	app, err := s.applications.FindLatestByUserAndPosition(ctx, userID, positionID)
	if err != nil {
		return nil, err
	}
	if app.Status.IsClosed() {
		return nil, common.NewError(common.CodeApplicationClosed, "application is already submitted", nil)
	}

	drafts, err := s.applications.ListDraftAnswers(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	answers := make(map[common.UUID]string, len(drafts))
	byQuestion := make(map[common.UUID]application.DraftAnswer, len(drafts))
	for _, d := range drafts {
		answers[d.QuestionID] = d.Answer
		byQuestion[d.QuestionID] = d
	}
	if missing := MissingRequired(answers, pos); len(missing) > 0 {
		return nil, common.NewIncompleteError(missing)
	}

	now := s.now()
	responses := make([]application.Response, 0, len(drafts))
	for _, q := range pos.Questions {
		d, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		responses = append(responses, application.Response{
			QuestionID:   q.ID,
			Answer:       d.Answer,
			TimeToAnswer: d.TimeSpentSeconds,
			CreatedAt:    d.CreatedAt,
			UpdatedAt:    now,
		})
	}
	submitted, err := s.applications.Submit(ctx, app.ID, responses, now, int(now.Sub(app.StartedAt).Seconds()))
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(ctx, app.ID); err != nil {
		s.logger.Warn("failed to drop session record after submit", zap.String("application_id", app.ID.String()), zap.Error(err))
	}
	s.metrics.Submissions.Inc()
	s.logger.Info("application submitted",
		zap.String("application_id", app.ID.String()),
		zap.String("position_id", positionID.String()),
		zap.Int("responses", len(responses)),
		zap.Int("time_to_complete", submitted.TimeToComplete))
	return submitted, nil
}

// Progress reports completion over required questions. It reads the live
// session when one exists and falls back to the durable drafts otherwise.
func (s *IntakeService) Progress(ctx context.Context, positionID, userID common.UUID) (*ProgressReport, error) {
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	app, err := s.applications.FindLatestByUserAndPosition(ctx, userID, positionID)
	if err != nil {
		return nil, err
	}

	answers := make(map[common.UUID]string)
	cursor := len(pos.Questions)
	if sess, err := s.sessions.Get(ctx, app.ID); err == nil && !sess.Expired(s.now()) {
		answers = sess.Answers
		cursor = sess.Current
	} else {
		drafts, err := s.applications.ListDraftAnswers(ctx, app.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range drafts {
			answers[d.QuestionID] = d.Answer
		}
	}

	total := len(pos.RequiredQuestionIDs())
	return &ProgressReport{
		Percent:          Progress(answers, pos),
		AnsweredRequired: total - len(MissingRequired(answers, pos)),
		TotalRequired:    total,
		CurrentQuestion:  cursor,
	}, nil
}

func (s *IntakeService) activePosition(ctx context.Context, positionID common.UUID) (*position.Position, error) {
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	if !pos.Active {
		return nil, common.NewError(common.CodePositionInactive, "position is not accepting applications", nil)
	}
	return pos, nil
}

// liveSession resolves the caller's draft application and its unexpired
// session record. A closed application and a missing record map to the
// two re-entry errors the client handles: closed means the record is
// final, expired means call Start again.
func (s *IntakeService) liveSession(ctx context.Context, positionID, userID common.UUID) (*application.Application, *session.Session, error) {
	app, err := s.applications.FindLatestByUserAndPosition(ctx, userID, positionID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, nil, common.NewError(common.CodeSessionExpired, "no session for this position", err)
		}
		return nil, nil, err
	}
	if app.Status.IsClosed() {
		return nil, nil, common.NewError(common.CodeApplicationClosed, "application is already submitted", nil)
	}
	sess, err := s.sessions.Get(ctx, app.ID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, nil, common.NewError(common.CodeSessionExpired, "session expired", err)
		}
		return nil, nil, err
	}
	if sess.Expired(s.now()) {
		return nil, nil, common.NewError(common.CodeSessionExpired, "session expired", nil)
	}
	return app, sess, nil
}
