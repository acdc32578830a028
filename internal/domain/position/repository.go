package position

import (
	"context"

	"intakeflow/internal/common"
)

// Repository is the read-only catalog boundary. Positions are authored and
// maintained by a separate admin surface; the intake engine never writes
// them.
type Repository interface {
	GetByID(ctx context.Context, id common.UUID) (*Position, error)
	ListActive(ctx context.Context) ([]Position, error)
}
