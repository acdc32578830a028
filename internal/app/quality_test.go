package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/position"
)

func TestScoreAnswer(t *testing.T) {
	long := position.Question{Kind: position.KindLongText}
	short := position.Question{Kind: position.KindShortText}
	sel := position.Question{Kind: position.KindSelect}
	check := position.Question{Kind: position.KindCheckbox}

	tests := []struct {
		name     string
		question position.Question
		answer   string
		seconds  int
		want     int
	}{
		{"long text under 30 words scores 1 regardless of time", long, strings.Repeat("word ", 25), 40, 1},
		{"long text under 100 words", long, strings.Repeat("word ", 60), 120, 2},
		{"long text typed suspiciously fast", long, strings.Repeat("word ", 150), 60, 2},
		{"long text with real effort", long, strings.Repeat("word ", 150), 300, 3},
		{"short text over 10 chars", short, "Alice Cooper", 5, 2},
		{"short text brief", short, "Alice", 5, 1},
		{"select answered", sel, "friend", 2, 2},
		{"checkbox answered", check, "a,b", 2, 2},
		{"unanswered scores zero", sel, "", 0, 0},
		{"whitespace counts as unanswered", long, "   ", 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreAnswer(tt.question, tt.answer, tt.seconds))
		})
	}
}

func TestScoreAnswersCoversEveryQuestion(t *testing.T) {
	q1 := position.Question{ID: common.NewUUID(), Kind: position.KindShortText}
	q2 := position.Question{ID: common.NewUUID(), Kind: position.KindLongText}
	pos := &position.Position{Questions: []position.Question{q1, q2}}

	scores := ScoreAnswers(pos, map[common.UUID]string{q1.ID: "Alice Cooper"}, map[common.UUID]int{q1.ID: 5})
	assert.Equal(t, 2, scores[q1.ID])
	assert.Equal(t, 0, scores[q2.ID])
}
