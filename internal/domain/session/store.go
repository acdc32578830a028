package session

import (
	"context"
	"time"

	"intakeflow/internal/common"
)

// Store keeps the ephemeral session record, keyed by application id.
// Implementations expire records on their own (redis TTL); Get returns
// CodeNotFound for both a missing and an expired record.
type Store interface {
	Get(ctx context.Context, applicationID common.UUID) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, applicationID common.UUID) error
}
