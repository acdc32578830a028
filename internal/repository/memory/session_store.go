package memory

import (
	"context"
	"sync"
	"time"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/session"
)

// SessionStore is the single-process fallback used when no redis address
// is configured. Expiry is checked lazily on Get.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[common.UUID]entry
}

type entry struct {
	session   session.Session
	expiresAt time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[common.UUID]entry)}
}

func (s *SessionStore) Get(ctx context.Context, applicationID common.UUID) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[applicationID]
	if !ok || !time.Now().Before(e.expiresAt) {
		delete(s.sessions, applicationID)
		return nil, common.NewError(common.CodeNotFound, "session not found", nil)
	}
	copied := e.session
	copied.Answers = cloneStrings(e.session.Answers)
	copied.TimePerQuestion = cloneInts(e.session.TimePerQuestion)
	return &copied, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sess
	copied.Answers = cloneStrings(sess.Answers)
	copied.TimePerQuestion = cloneInts(sess.TimePerQuestion)
	s.sessions[sess.ApplicationID] = entry{session: copied, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, applicationID common.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, applicationID)
	return nil
}

func cloneStrings(in map[common.UUID]string) map[common.UUID]string {
	out := make(map[common.UUID]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneInts(in map[common.UUID]int) map[common.UUID]int {
	out := make(map[common.UUID]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
