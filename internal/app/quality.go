package app

import (
	"strings"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/position"
)

// ScoreAnswer estimates answer depth on a 0-3 scale for reviewer context.
// It is advisory only: submission never consults it.
//
// For long-form answers the word count dominates, with a penalty for text
// produced faster than one second per word, which usually means a paste.
func ScoreAnswer(q position.Question, answer string, secondsSpent int) int {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return 0
	}
	switch q.Kind {
	case position.KindLongText:
		words := len(strings.Fields(trimmed))
		if words < 30 {
			return 1
		}
		if words < 100 {
			return 2
		}
		if float64(secondsSpent)/float64(words) < 1 {
			return 2
		}
		return 3
	case position.KindShortText:
		if len(trimmed) > 10 {
			return 2
		}
		return 1
	default:
		return 2
	}
}

// ScoreAnswers maps every question of the position to its score,
// unanswered questions included.
func ScoreAnswers(pos *position.Position, answers map[common.UUID]string, timePerQuestion map[common.UUID]int) map[common.UUID]int {
	scores := make(map[common.UUID]int, len(pos.Questions))
	for _, q := range pos.Questions {
		scores[q.ID] = ScoreAnswer(q, answers[q.ID], timePerQuestion[q.ID])
	}
	return scores
}
