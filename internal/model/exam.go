package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamDefinition is the immutable description of a published exam as
// served by the question bank. The engine never mutates it.
type ExamDefinition struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	DurationMinutes    int        `json:"duration_minutes"`
	PassingScore       float64    `json:"passing_score"` // percentage, 0-100
	MaxAttempts        int        `json:"max_attempts"`  // 0 = unlimited
	RandomizeQuestions bool       `json:"randomize_questions"`
	RandomizeOptions   bool       `json:"randomize_options"`
	Questions          []Question `json:"questions"`
}

// Duration returns the exam duration as a time.Duration.
func (e *ExamDefinition) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// TotalPoints sums the point values of every question.
func (e *ExamDefinition) TotalPoints() float64 {
	var total float64
	for i := range e.Questions {
		total += e.Questions[i].Points
	}
	return total
}

// QuestionByID returns the question with the given id, or nil.
func (e *ExamDefinition) QuestionByID(id uuid.UUID) *Question {
	for i := range e.Questions {
		if e.Questions[i].ID == id {
			return &e.Questions[i]
		}
	}
	return nil
}
