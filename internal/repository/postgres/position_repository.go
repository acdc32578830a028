package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/position"
)

type PositionRepository struct {
	db *sql.DB
}

func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) GetByID(ctx context.Context, id common.UUID) (*position.Position, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, title, description, active, created_at, updated_at FROM positions WHERE id = $1`, id)
	var pos position.Position
	if err := row.Scan(&pos.ID, &pos.Title, &pos.Description, &pos.Active, &pos.CreatedAt, &pos.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "position not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load position", err)
	}
	questions, err := r.listQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	pos.Questions = questions
	return &pos, nil
}

func (r *PositionRepository) ListActive(ctx context.Context) ([]position.Position, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, description, active, created_at, updated_at FROM positions WHERE active ORDER BY created_at DESC`)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list positions", err)
	}
	defer rows.Close()
	var items []position.Position
	for rows.Next() {
		var pos position.Position
		if err := rows.Scan(&pos.ID, &pos.Title, &pos.Description, &pos.Active, &pos.CreatedAt, &pos.UpdatedAt); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan position", err)
		}
		items = append(items, pos)
	}
	for i := range items {
		questions, err := r.listQuestions(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Questions = questions
	}
	return items, nil
}

func (r *PositionRepository) listQuestions(ctx context.Context, positionID common.UUID) ([]position.Question, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, subtitle, kind, required, options, sort_order
		FROM questions WHERE position_id = $1 ORDER BY sort_order ASC`, positionID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list questions", err)
	}
	defer rows.Close()
	var items []position.Question
	for rows.Next() {
		var q position.Question
		if err := rows.Scan(&q.ID, &q.Title, &q.Subtitle, &q.Kind, &q.Required, pq.Array(&q.Options), &q.SortOrder); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan question", err)
		}
		items = append(items, q)
	}
	return items, nil
}
