package app

import (
	"math"
	"strings"

	"intakeflow/internal/common"
	"intakeflow/internal/domain/position"
)

// Progress is the completion percentage over required questions only. A
// question counts as answered once it carries a non-empty answer, the
// same bar Submit applies. A position with no required questions is
// vacuously complete so that it stays submittable.
func Progress(answers map[common.UUID]string, pos *position.Position) int {
	total := 0
	answered := 0
	for _, q := range pos.Questions {
		if !q.Required {
			continue
		}
		total++
		if strings.TrimSpace(answers[q.ID]) != "" {
			answered++
		}
	}
	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(answered) / float64(total)))
}

// MissingRequired lists the required question ids with no usable answer,
// in sort order.
func MissingRequired(answers map[common.UUID]string, pos *position.Position) []common.UUID {
	var missing []common.UUID
	for _, q := range pos.Questions {
		if q.Required && strings.TrimSpace(answers[q.ID]) == "" {
			missing = append(missing, q.ID)
		}
	}
	return missing
}
