package app

import (
	"context"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/position"
)

// CatalogService exposes the read-only position catalog to the HTTP layer.
type CatalogService struct {
	positions position.Repository
}

func NewCatalogService(positions position.Repository) *CatalogService {
	return &CatalogService{positions: positions}
}

func (s *CatalogService) Get(ctx context.Context, id common.UUID) (*position.Position, error) {
	return s.positions.GetByID(ctx, id)
}

func (s *CatalogService) ListActive(ctx context.Context) ([]position.Position, error) {
	return s.positions.ListActive(ctx)
}
