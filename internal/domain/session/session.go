package session

import (
	"time"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/position"
)

// Session is the ephemeral working state layered over a draft application:
// cursor position, working answers and per-question timers. It is rebuilt
// from the durable draft answers whenever the stored record has expired.
type Session struct {
	ApplicationID   common.UUID            `json:"application_id"`
	UserID          common.UUID            `json:"user_id"`
	PositionID      common.UUID            `json:"position_id"`
	Current         int                    `json:"current_question"`
	Answers         map[common.UUID]string `json:"answers"`
	TimePerQuestion map[common.UUID]int    `json:"time_per_question"`
	StartTime       time.Time              `json:"start_time"`
	LastActive      time.Time              `json:"last_active_time"`
	ExpiresAt       time.Time              `json:"expires_at"`
}

func New(applicationID, userID, positionID common.UUID, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ApplicationID:   applicationID,
		UserID:          userID,
		PositionID:      positionID,
		Answers:         make(map[common.UUID]string),
		TimePerQuestion: make(map[common.UUID]int),
		StartTime:       now,
		LastActive:      now,
		ExpiresAt:       now.Add(ttl),
	}
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ResumeCursor places the cursor on the first question with no recorded
// answer, in sort order. With every question answered it lands one past
// the end, which is the review state.
func (s *Session) ResumeCursor(pos *position.Position) {
	s.Current = len(pos.Questions)
	for i, q := range pos.Questions {
		if _, ok := s.Answers[q.ID]; !ok {
			s.Current = i
			break
		}
	}
}

// RecordAnswer overwrites the working answer, accumulates the time spent
// and re-arms the TTL. The cursor only advances when the edited question
// is the one under the cursor; revising an earlier answer leaves it alone.
func (s *Session) RecordAnswer(questionIndex, questionCount int, questionID common.UUID, answer string, seconds int, now time.Time, ttl time.Duration) {
	s.Answers[questionID] = answer
	if seconds > 0 {
		s.TimePerQuestion[questionID] += seconds
	}
	if questionIndex == s.Current && s.Current < questionCount {
		s.Current++
	}
	s.Touch(now, ttl)
}

// MoveTo repositions the cursor. Any index up to and including the
// question count is reachable at any time before submission; the count
// itself is the review step.
func (s *Session) MoveTo(index, questionCount int) error {
	if index < 0 || index > questionCount {
		return common.NewValidationError("question index out of range", map[string]string{"index": "must be between 0 and the question count"})
	}
	s.Current = index
	return nil
}

func (s *Session) Touch(now time.Time, ttl time.Duration) {
	s.LastActive = now
	s.ExpiresAt = now.Add(ttl)
}
