package models

import "time"

// QuestionType discriminates the two card kinds. The kind decides which
// fields are required: options A-D plus a correct letter for multiple
// choice, a blank answer for fill-in-blank.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	FillInBlank    QuestionType = "fill_in_blank"
)

type Card struct {
	ID            int64        `json:"id"`
	Question      string       `json:"question"`
	QuestionType  QuestionType `json:"question_type"`
	OptionA       string       `json:"option_a,omitempty"`
	OptionB       string       `json:"option_b,omitempty"`
	OptionC       string       `json:"option_c,omitempty"`
	OptionD       string       `json:"option_d,omitempty"`
	OptionE       string       `json:"option_e,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	BlankAnswer   string       `json:"blank_answer,omitempty"`
	Hints         string       `json:"hints,omitempty"`
	Subject       string       `json:"subject"`
	Difficulty    int          `json:"difficulty"`
	ImagePath     string       `json:"image_path,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Kind returns the question type, treating the zero value as multiple
// choice for records that predate the fill-in-blank feature.
func (c Card) Kind() QuestionType {
	if c.QuestionType == FillInBlank {
		return FillInBlank
	}
	return MultipleChoice
}
