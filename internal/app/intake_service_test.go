package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/application"
	"intakeflow/internal/domain/position"
	"intakeflow/internal/domain/session"
	"intakeflow/internal/observability"
)

type fakePositionRepo struct {
	mu        sync.Mutex
	positions map[common.UUID]position.Position
}

func newFakePositionRepo(positions ...position.Position) *fakePositionRepo {
	repo := &fakePositionRepo{positions: make(map[common.UUID]position.Position)}
	for _, pos := range positions {
		repo.positions[pos.ID] = pos
	}
	return repo
}

func (r *fakePositionRepo) GetByID(ctx context.Context, id common.UUID) (*position.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positions[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "position not found", nil)
	}
	copied := pos
	return &copied, nil
}

func (r *fakePositionRepo) ListActive(ctx context.Context) ([]position.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []position.Position
	for _, pos := range r.positions {
		if pos.Active {
			items = append(items, pos)
		}
	}
	return items, nil
}

type fakeApplicationRepo struct {
	mu                     sync.Mutex
	apps                   map[common.UUID]*application.Application
	drafts                 map[common.UUID]map[common.UUID]application.DraftAnswer
	responses              map[common.UUID][]application.Response
	failCreateWithConflict bool
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{
		apps:      make(map[common.UUID]*application.Application),
		drafts:    make(map[common.UUID]map[common.UUID]application.DraftAnswer),
		responses: make(map[common.UUID][]application.Response),
	}
}

func (r *fakeApplicationRepo) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateWithConflict {
		return nil, common.NewError(common.CodeConflict, "active application already exists", nil)
	}
	for _, existing := range r.apps {
		if existing.UserID == app.UserID && existing.PositionID == app.PositionID && existing.Status == application.StatusDraft {
			return nil, common.NewError(common.CodeConflict, "active application already exists", nil)
		}
	}
	app.ID = common.NewUUID()
	stored := app
	r.apps[app.ID] = &stored
	r.drafts[app.ID] = make(map[common.UUID]application.DraftAnswer)
	copied := app
	return &copied, nil
}

func (r *fakeApplicationRepo) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	copied := *app
	return &copied, nil
}

func (r *fakeApplicationRepo) FindActiveByUserAndPosition(ctx context.Context, userID, positionID common.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.UserID == userID && app.PositionID == positionID && app.Status == application.StatusDraft {
			copied := *app
			return &copied, nil
		}
	}
	return nil, common.NewError(common.CodeNotFound, "application not found", nil)
}

func (r *fakeApplicationRepo) FindLatestByUserAndPosition(ctx context.Context, userID, positionID common.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *application.Application
	for _, app := range r.apps {
		if app.UserID != userID || app.PositionID != positionID {
			continue
		}
		if latest == nil || app.StartedAt.After(latest.StartedAt) {
			latest = app
		}
	}
	if latest == nil {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeApplicationRepo) ListByStatus(ctx context.Context, status application.Status) ([]application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []application.Application
	for _, app := range r.apps {
		if app.Status == status {
			items = append(items, *app)
		}
	}
	return items, nil
}

func (r *fakeApplicationRepo) ListByUser(ctx context.Context, userID common.UUID) ([]application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []application.Application
	for _, app := range r.apps {
		if app.UserID == userID {
			items = append(items, *app)
		}
	}
	return items, nil
}

func (r *fakeApplicationRepo) Touch(ctx context.Context, id common.UUID, lastUpdated, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app, ok := r.apps[id]; ok {
		app.LastUpdatedAt = lastUpdated
		app.ExpiresAt = expiresAt
	}
	return nil
}

func (r *fakeApplicationRepo) UpsertDraftAnswer(ctx context.Context, applicationID common.UUID, draft application.DraftAnswer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byQuestion, ok := r.drafts[applicationID]
	if !ok {
		byQuestion = make(map[common.UUID]application.DraftAnswer)
		r.drafts[applicationID] = byQuestion
	}
	if existing, ok := byQuestion[draft.QuestionID]; ok {
		draft.CreatedAt = existing.CreatedAt
	} else {
		draft.CreatedAt = draft.UpdatedAt
	}
	byQuestion[draft.QuestionID] = draft
	return nil
}

func (r *fakeApplicationRepo) ListDraftAnswers(ctx context.Context, applicationID common.UUID) ([]application.DraftAnswer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []application.DraftAnswer
	for _, draft := range r.drafts[applicationID] {
		items = append(items, draft)
	}
	return items, nil
}

func (r *fakeApplicationRepo) Submit(ctx context.Context, id common.UUID, responses []application.Response, submittedAt time.Time, timeToComplete int) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	if app.Status != application.StatusDraft {
		return nil, common.NewError(common.CodeApplicationClosed, "application is already submitted", nil)
	}
	app.Status = application.StatusSubmitted
	at := submittedAt
	app.SubmittedAt = &at
	app.LastUpdatedAt = submittedAt
	app.TimeToComplete = timeToComplete
	r.responses[id] = append([]application.Response(nil), responses...)
	delete(r.drafts, id)
	copied := *app
	return &copied, nil
}

func (r *fakeApplicationRepo) UpdateStatus(ctx context.Context, id common.UUID, status application.Status, reviewerID common.UUID, feedback string, reviewedAt time.Time) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	app.Status = status
	app.ReviewerID = &reviewerID
	at := reviewedAt
	app.ReviewedAt = &at
	app.Feedback = feedback
	app.LastUpdatedAt = reviewedAt
	copied := *app
	return &copied, nil
}

func (r *fakeApplicationRepo) ListResponses(ctx context.Context, applicationID common.UUID) ([]application.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]application.Response(nil), r.responses[applicationID]...), nil
}

// fakeSessionStore never expires records on its own; the service clock
// decides, which keeps expiry deterministic in tests.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[common.UUID]session.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[common.UUID]session.Session)}
}

func (s *fakeSessionStore) Get(ctx context.Context, applicationID common.UUID) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[applicationID]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "session not found", nil)
	}
	copied := stored
	copied.Answers = make(map[common.UUID]string, len(stored.Answers))
	for k, v := range stored.Answers {
		copied.Answers[k] = v
	}
	copied.TimePerQuestion = make(map[common.UUID]int, len(stored.TimePerQuestion))
	for k, v := range stored.TimePerQuestion {
		copied.TimePerQuestion[k] = v
	}
	return &copied, nil
}

func (s *fakeSessionStore) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ApplicationID] = *sess
	return nil
}

func (s *fakeSessionStore) Delete(ctx context.Context, applicationID common.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, applicationID)
	return nil
}

func testPosition(questions ...position.Question) position.Position {
	return position.Position{
		ID:        common.NewUUID(),
		Title:     "Backend Engineer",
		Active:    true,
		Questions: questions,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func shortText(required bool) position.Question {
	return position.Question{ID: common.NewUUID(), Title: "Name", Kind: position.KindShortText, Required: required}
}

func longText(required bool) position.Question {
	return position.Question{ID: common.NewUUID(), Title: "Motivation", Kind: position.KindLongText, Required: required}
}

func newTestIntake(t *testing.T, positions ...position.Position) (*IntakeService, *fakeApplicationRepo, *fakeSessionStore, *time.Time) {
	t.Helper()
	apps := newFakeApplicationRepo()
	store := newFakeSessionStore()
	svc := NewIntakeService(newFakePositionRepo(positions...), apps, store, observability.NewMetrics(prometheus.NewRegistry()), zap.NewNop(), 30*time.Minute)
	current := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }
	return svc, apps, store, &current
}

func TestStartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	q1 := shortText(true)
	q2 := longText(true)
	pos := testPosition(q1, q2)
	svc, _, _, _ := newTestIntake(t, pos)
	userID := common.NewUUID()

	first, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Current)

	_, err = svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "Alice", 5)
	require.NoError(t, err)

	second, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ApplicationID, second.ApplicationID)
	assert.Equal(t, "Alice", second.Answers[q1.ID])
	assert.Equal(t, 1, second.Current, "cursor resumes at the first unanswered question")
}

func TestStartRejectsInactivePosition(t *testing.T) {
	ctx := context.Background()
	pos := testPosition(shortText(true))
	pos.Active = false
	svc, _, _, _ := newTestIntake(t, pos)

	_, err := svc.Start(ctx, pos.ID, common.NewUUID())
	assert.True(t, common.Is(err, common.CodePositionInactive))
}

func TestStartSurfacesCreateRaceAsTypedConflict(t *testing.T) {
	ctx := context.Background()
	pos := testPosition(shortText(true))
	svc, apps, _, _ := newTestIntake(t, pos)
	apps.failCreateWithConflict = true

	_, err := svc.Start(ctx, pos.ID, common.NewUUID())
	assert.True(t, common.Is(err, common.CodeAlreadyActive))
}

func TestIntakeScenario(t *testing.T) {
	ctx := context.Background()
	q1 := shortText(true)
	q2 := longText(true)
	pos := testPosition(q1, q2)
	svc, apps, _, now := newTestIntake(t, pos)
	userID := common.NewUUID()

	sess, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	require.Equal(t, 0, sess.Current)

	sess, err = svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "Alice", 5)
	require.NoError(t, err)
	assert.Equal(t, "Alice", sess.Answers[q1.ID])
	assert.Equal(t, 1, sess.Current)

	_, err = svc.SaveAnswer(ctx, pos.ID, userID, q2.ID, "", 3)
	require.Error(t, err)
	assert.True(t, common.Is(err, common.CodeValidation))

	unchanged, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, unchanged.Current, "failed save must not move the cursor")
	assert.NotContains(t, unchanged.Answers, q2.ID)

	*now = now.Add(40 * time.Second)
	sess, err = svc.SaveAnswer(ctx, pos.ID, userID, q2.ID, "I love building things and collaborating.", 40)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Current, "answering the last question lands on review")

	submitted, err := svc.Submit(ctx, pos.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusSubmitted, submitted.Status)
	assert.Equal(t, 40, submitted.TimeToComplete)
	require.NotNil(t, submitted.SubmittedAt)

	responses, err := apps.ListResponses(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Len(t, responses, 2)

	_, err = svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "Bob", 2)
	assert.True(t, common.Is(err, common.CodeApplicationClosed))

	_, err = svc.Submit(ctx, pos.ID, userID)
	assert.True(t, common.Is(err, common.CodeApplicationClosed))
}

func TestStartAfterSubmitIsRejected(t *testing.T) {
	ctx := context.Background()
	q1 := shortText(true)
	pos := testPosition(q1)
	svc, apps, _, _ := newTestIntake(t, pos)
	userID := common.NewUUID()

	first, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	_, err = svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "Alice", 5)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, pos.ID, userID)
	require.NoError(t, err)

	_, err = svc.Start(ctx, pos.ID, userID)
	assert.True(t, common.Is(err, common.CodeApplicationClosed), "a submitted application blocks a new start")

	all, err := apps.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, all, 1, "start after submit must not create a second application")
	assert.Equal(t, first.ApplicationID, all[0].ID)
}

func TestStartAfterTerminalReviewOpensFreshApplication(t *testing.T) {
	ctx := context.Background()
	q1 := shortText(true)
	pos := testPosition(q1)
	svc, apps, _, now := newTestIntake(t, pos)
	userID := common.NewUUID()

	first, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	_, err = svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "Alice", 5)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, pos.ID, userID)
	require.NoError(t, err)

	_, err = apps.UpdateStatus(ctx, first.ApplicationID, application.StatusRejected, common.NewUUID(), "not a fit", *now)
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	fresh, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ApplicationID, fresh.ApplicationID)
	assert.Empty(t, fresh.Answers)
	assert.Equal(t, 0, fresh.Current)
}

func TestSubmitBlocksOnMissingRequired(t *testing.T) {
	ctx := context.Background()
	q1 := shortText(true)
	q2 := longText(true)
	q3 := position.Question{ID: common.NewUUID(), Title: "Source", Kind: position.KindSelect, Options: []string{"friend", "ad"}}
	pos := testPosition(q1, q2, q3)
	svc, apps, _, _ := newTestIntake(t, pos)
	userID := common.NewUUID()

	_, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	_, err = svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "Alice", 5)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, pos.ID, userID)
	require.Error(t, err)
	var typed *common.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, common.CodeIncompleteApplication, typed.Code)
	assert.Equal(t, []common.UUID{q2.ID}, typed.Missing)

	app, err := apps.FindLatestByUserAndPosition(ctx, userID, pos.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusDraft, app.Status, "blocked submit must not change status")
}

func TestSaveAnswerAccumulatesTimeAndOverwritesText(t *testing.T) {
	ctx := context.Background()
	q1 := shortText(true)
	pos := testPosition(q1, longText(false))
	svc, apps, _, _ := newTestIntake(t, pos)
	userID := common.NewUUID()

	_, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)

	sess, err := svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "draft one", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, sess.TimePerQuestion[q1.ID])

	sess, err = svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "draft two", 7)
	require.NoError(t, err)
	assert.Equal(t, "draft two", sess.Answers[q1.ID])
	assert.Equal(t, 17, sess.TimePerQuestion[q1.ID])

	app, err := apps.FindLatestByUserAndPosition(ctx, userID, pos.ID)
	require.NoError(t, err)
	drafts, err := apps.ListDraftAnswers(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "draft two", drafts[0].Answer)
	assert.Equal(t, 17, drafts[0].TimeSpentSeconds)
}

func TestSaveAnswerRejectsForeignQuestion(t *testing.T) {
	ctx := context.Background()
	pos := testPosition(shortText(true))
	svc, _, _, _ := newTestIntake(t, pos)
	userID := common.NewUUID()

	_, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)

	_, err = svc.SaveAnswer(ctx, pos.ID, userID, common.NewUUID(), "whatever", 1)
	assert.True(t, common.Is(err, common.CodeValidation))
}

func TestExpiredSessionKeepsDraftAnswers(t *testing.T) {
	ctx := context.Background()
	q1 := shortText(true)
	q2 := longText(true)
	pos := testPosition(q1, q2)
	svc, _, _, now := newTestIntake(t, pos)
	userID := common.NewUUID()

	_, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	_, err = svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "Alice", 5)
	require.NoError(t, err)

	*now = now.Add(31 * time.Minute)
	_, err = svc.SaveAnswer(ctx, pos.ID, userID, q2.ID, "late answer", 5)
	assert.True(t, common.Is(err, common.CodeSessionExpired))

	resumed, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", resumed.Answers[q1.ID], "saved answers survive expiry")
	assert.Equal(t, 5, resumed.TimePerQuestion[q1.ID])
	assert.Equal(t, 1, resumed.Current)
	assert.True(t, resumed.ExpiresAt.After(resumed.LastActive))
}

func TestMoveToAllowsRevisitingAnyQuestion(t *testing.T) {
	ctx := context.Background()
	q1 := shortText(true)
	q2 := longText(true)
	pos := testPosition(q1, q2)
	svc, _, _, _ := newTestIntake(t, pos)
	userID := common.NewUUID()

	_, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)
	_, err = svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "Alice", 5)
	require.NoError(t, err)

	sess, err := svc.MoveTo(ctx, pos.ID, userID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Current)

	// Revising an earlier answer keeps the cursor advancing from there.
	sess, err = svc.SaveAnswer(ctx, pos.ID, userID, q1.ID, "Alice Smith", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Current)

	sess, err = svc.MoveTo(ctx, pos.ID, userID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Current)

	_, err = svc.MoveTo(ctx, pos.ID, userID, 3)
	assert.True(t, common.Is(err, common.CodeValidation))
	_, err = svc.MoveTo(ctx, pos.ID, userID, -1)
	assert.True(t, common.Is(err, common.CodeValidation))
}

func TestSubmitWithNoRequiredQuestions(t *testing.T) {
	ctx := context.Background()
	pos := testPosition(shortText(false), longText(false))
	svc, _, _, _ := newTestIntake(t, pos)
	userID := common.NewUUID()

	_, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)

	report, err := svc.Progress(ctx, pos.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 100, report.Percent)

	submitted, err := svc.Submit(ctx, pos.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusSubmitted, submitted.Status)
}

func TestSnapshotDoesNotCreateOrRearm(t *testing.T) {
	ctx := context.Background()
	q1 := shortText(true)
	pos := testPosition(q1, longText(true))
	svc, apps, _, now := newTestIntake(t, pos)
	userID := common.NewUUID()

	_, err := svc.Snapshot(ctx, pos.ID, userID)
	assert.True(t, common.Is(err, common.CodeSessionExpired))
	all, err := apps.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, all, "reading a snapshot must not create an application")

	started, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)

	*now = now.Add(10 * time.Minute)
	snap, err := svc.Snapshot(ctx, pos.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, started.ApplicationID, snap.ApplicationID)
	assert.Equal(t, started.ExpiresAt, snap.ExpiresAt, "a snapshot read must not re-arm the TTL")

	*now = now.Add(21 * time.Minute)
	_, err = svc.Snapshot(ctx, pos.ID, userID)
	assert.True(t, common.Is(err, common.CodeSessionExpired))
}

func TestProgressNeverDecreases(t *testing.T) {
	ctx := context.Background()
	q1 := shortText(true)
	q2 := longText(true)
	q3 := shortText(true)
	pos := testPosition(q1, q2, q3)
	svc, _, _, _ := newTestIntake(t, pos)
	userID := common.NewUUID()

	_, err := svc.Start(ctx, pos.ID, userID)
	require.NoError(t, err)

	last := -1
	for _, q := range []position.Question{q1, q2, q3} {
		report, err := svc.Progress(ctx, pos.ID, userID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, report.Percent, last)
		assert.LessOrEqual(t, report.Percent, 100)
		last = report.Percent

		answer := "some answer"
		if q.Kind == position.KindLongText {
			answer = strings.Repeat("word ", 40)
		}
		_, err = svc.SaveAnswer(ctx, pos.ID, userID, q.ID, answer, 10)
		require.NoError(t, err)
	}
	report, err := svc.Progress(ctx, pos.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 100, report.Percent)
}
