package model

import "github.com/google/uuid"

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeMultiChoice  QuestionType = "multi_choice"
	QuestionTypeShortAnswer  QuestionType = "short_answer"
	QuestionTypeEssay        QuestionType = "essay"
	QuestionTypeFillBlank    QuestionType = "fill_blank"
	QuestionTypeMatching     QuestionType = "matching"
)

// Question is a single exam question. Immutable once the exam is published.
type Question struct {
	ID      uuid.UUID    `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
	Correct Answer       `json:"correct"`
	Points  float64      `json:"points"`
}

// Answer holds a submitted or expected answer. Either Value (scalar
// types) or Values (multi-select and matching) is populated, never both.
// Matching pairs are encoded as "left=right" strings inside Values.
type Answer struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// IsSet reports whether the answer is a set of values rather than a scalar.
func (a Answer) IsSet() bool {
	return a.Values != nil
}

// IsEmpty reports whether the answer carries no content at all.
func (a Answer) IsEmpty() bool {
	return a.Value == "" && len(a.Values) == 0
}
