package position

import (
	"time"

	"intakeflow/internal/common"
)

type Kind string

const (
	KindShortText Kind = "short_text"
	KindLongText  Kind = "long_text"
	KindSelect    Kind = "select"
	KindCheckbox  Kind = "checkbox"
)

type Question struct {
	ID        common.UUID `json:"id"`
	Title     string      `json:"title"`
	Subtitle  string      `json:"subtitle,omitempty"`
	Kind      Kind        `json:"kind"`
	Required  bool        `json:"required"`
	Options   []string    `json:"options,omitempty"`
	SortOrder int         `json:"sort_order"`
}

type Position struct {
	ID          common.UUID `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Active      bool        `json:"active"`
	Questions   []Question  `json:"questions"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// QuestionByID returns the question and its index in sort order, or nil
// when the id does not belong to this position.
func (p *Position) QuestionByID(id common.UUID) (*Question, int) {
	for i := range p.Questions {
		if p.Questions[i].ID == id {
			return &p.Questions[i], i
		}
	}
	return nil, -1
}

func (p *Position) RequiredQuestionIDs() []common.UUID {
	var ids []common.UUID
	for _, q := range p.Questions {
		if q.Required {
			ids = append(ids, q.ID)
		}
	}
	return ids
}
