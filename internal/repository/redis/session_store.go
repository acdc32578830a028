package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/session"
)

const keyPrefix = "intake:session:"

// SessionStore keeps session records in redis with the TTL enforced by
// the server. Expiry drops only this record; draft answers live in
// postgres and survive.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Get(ctx context.Context, applicationID common.UUID) (*session.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+applicationID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.NewError(common.CodeNotFound, "session not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load session", err)
	}
	var sess session.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to decode session", err)
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to encode session", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sess.ApplicationID.String(), payload, ttl).Err(); err != nil {
		return common.NewError(common.CodeInternal, "failed to store session", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, applicationID common.UUID) error {
	if err := s.client.Del(ctx, keyPrefix+applicationID.String()).Err(); err != nil {
		return common.NewError(common.CodeInternal, "failed to delete session", err)
	}
	return nil
}
