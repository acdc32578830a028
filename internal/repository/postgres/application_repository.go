package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/application"
)

const uniqueViolation = "23505"

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, user_id, position_id, status, started_at, last_updated_at, submitted_at, expires_at, time_to_complete, reviewer_id, reviewed_at, feedback`

func (r *ApplicationRepository) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	app.ID = common.NewUUID()
	_, err := r.db.ExecContext(ctx, `INSERT INTO applications (id, user_id, position_id, status, started_at, last_updated_at, expires_at, feedback)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		app.ID, app.UserID, app.PositionID, app.Status, app.StartedAt, app.LastUpdatedAt, app.ExpiresAt, app.Feedback)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.NewError(common.CodeConflict, "active application already exists", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to create application", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	return scanApplication(row)
}

func (r *ApplicationRepository) FindActiveByUserAndPosition(ctx context.Context, userID, positionID common.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications
		WHERE user_id = $1 AND position_id = $2 AND status = $3`, userID, positionID, application.StatusDraft)
	return scanApplication(row)
}

func (r *ApplicationRepository) FindLatestByUserAndPosition(ctx context.Context, userID, positionID common.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications
		WHERE user_id = $1 AND position_id = $2 ORDER BY started_at DESC LIMIT 1`, userID, positionID)
	return scanApplication(row)
}

func (r *ApplicationRepository) ListByStatus(ctx context.Context, status application.Status) ([]application.Application, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE status = $1 ORDER BY submitted_at DESC NULLS LAST`, status)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list applications", err)
	}
	return scanApplications(rows)
}

func (r *ApplicationRepository) ListByUser(ctx context.Context, userID common.UUID) ([]application.Application, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 ORDER BY started_at DESC`, userID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list user applications", err)
	}
	return scanApplications(rows)
}

func (r *ApplicationRepository) Touch(ctx context.Context, id common.UUID, lastUpdated, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE applications SET last_updated_at = $1, expires_at = $2 WHERE id = $3`, lastUpdated, expiresAt, id)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to touch application", err)
	}
	return nil
}

func (r *ApplicationRepository) UpsertDraftAnswer(ctx context.Context, applicationID common.UUID, draft application.DraftAnswer) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO draft_answers (application_id, question_id, answer, time_spent_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (application_id, question_id)
		DO UPDATE SET answer = EXCLUDED.answer, time_spent_seconds = EXCLUDED.time_spent_seconds, updated_at = EXCLUDED.updated_at`,
		applicationID, draft.QuestionID, draft.Answer, draft.TimeSpentSeconds, draft.UpdatedAt)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to save draft answer", err)
	}
	return nil
}

func (r *ApplicationRepository) ListDraftAnswers(ctx context.Context, applicationID common.UUID) ([]application.DraftAnswer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT question_id, answer, time_spent_seconds, created_at, updated_at
		FROM draft_answers WHERE application_id = $1`, applicationID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list draft answers", err)
	}
	defer rows.Close()
	var items []application.DraftAnswer
	for rows.Next() {
		var d application.DraftAnswer
		if err := rows.Scan(&d.QuestionID, &d.Answer, &d.TimeSpentSeconds, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan draft answer", err)
		}
		items = append(items, d)
	}
	return items, nil
}

func (r *ApplicationRepository) Submit(ctx context.Context, id common.UUID, responses []application.Response, submittedAt time.Time, timeToComplete int) (*application.Application, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `UPDATE applications
		SET status = $1, submitted_at = $2, last_updated_at = $2, time_to_complete = $3
		WHERE id = $4 AND status = $5`,
		application.StatusSubmitted, submittedAt, timeToComplete, id, application.StatusDraft)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to submit application", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil, common.NewError(common.CodeApplicationClosed, "application is already submitted", nil)
	}
	for _, resp := range responses {
		createdAt := resp.CreatedAt
		if createdAt.IsZero() {
			createdAt = submittedAt
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO responses (application_id, question_id, answer, time_to_answer, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, resp.QuestionID, resp.Answer, resp.TimeToAnswer, createdAt, resp.UpdatedAt); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to write response", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM draft_answers WHERE application_id = $1`, id); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to clear draft answers", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to commit submission", err)
	}
	return r.GetByID(ctx, id)
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id common.UUID, status application.Status, reviewerID common.UUID, feedback string, reviewedAt time.Time) (*application.Application, error) {
	_, err := r.db.ExecContext(ctx, `UPDATE applications
		SET status = $1, reviewer_id = $2, feedback = $3, reviewed_at = $4, last_updated_at = $4
		WHERE id = $5`, status, reviewerID, feedback, reviewedAt, id)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update application", err)
	}
	return r.GetByID(ctx, id)
}

func (r *ApplicationRepository) ListResponses(ctx context.Context, applicationID common.UUID) ([]application.Response, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT r.question_id, r.answer, r.time_to_answer, r.created_at, r.updated_at
		FROM responses r
		JOIN questions q ON q.id = r.question_id
		WHERE r.application_id = $1
		ORDER BY q.sort_order ASC`, applicationID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list responses", err)
	}
	defer rows.Close()
	var items []application.Response
	for rows.Next() {
		var resp application.Response
		if err := rows.Scan(&resp.QuestionID, &resp.Answer, &resp.TimeToAnswer, &resp.CreatedAt, &resp.UpdatedAt); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan response", err)
		}
		items = append(items, resp)
	}
	return items, nil
}

func scanApplication(row *sql.Row) (*application.Application, error) {
	var app application.Application
	var submittedAt, reviewedAt sql.NullTime
	var reviewerID sql.NullString
	var timeToComplete sql.NullInt64
	if err := row.Scan(&app.ID, &app.UserID, &app.PositionID, &app.Status, &app.StartedAt, &app.LastUpdatedAt, &submittedAt, &app.ExpiresAt, &timeToComplete, &reviewerID, &reviewedAt, &app.Feedback); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load application", err)
	}
	applyNullables(&app, submittedAt, reviewedAt, reviewerID, timeToComplete)
	return &app, nil
}

func scanApplications(rows *sql.Rows) ([]application.Application, error) {
	defer rows.Close()
	var items []application.Application
	for rows.Next() {
		var app application.Application
		var submittedAt, reviewedAt sql.NullTime
		var reviewerID sql.NullString
		var timeToComplete sql.NullInt64
		if err := rows.Scan(&app.ID, &app.UserID, &app.PositionID, &app.Status, &app.StartedAt, &app.LastUpdatedAt, &submittedAt, &app.ExpiresAt, &timeToComplete, &reviewerID, &reviewedAt, &app.Feedback); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan application", err)
		}
		applyNullables(&app, submittedAt, reviewedAt, reviewerID, timeToComplete)
		items = append(items, app)
	}
	return items, nil
}

func applyNullables(app *application.Application, submittedAt, reviewedAt sql.NullTime, reviewerID sql.NullString, timeToComplete sql.NullInt64) {
	if submittedAt.Valid {
		t := submittedAt.Time
		app.SubmittedAt = &t
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		app.ReviewedAt = &t
	}
	if reviewerID.Valid {
		rid := common.UUID(reviewerID.String)
		app.ReviewerID = &rid
	}
	if timeToComplete.Valid {
		app.TimeToComplete = int(timeToComplete.Int64)
	}
}
