package model

import (
	"time"

	"github.com/google/uuid"
)

// EndReason records what closed out an attempt.
type EndReason string

const (
	EndReasonSubmitted     EndReason = "submitted"
	EndReasonAutoSubmitted EndReason = "auto_submitted"
	EndReasonTimedOut      EndReason = "timed_out"
)

// Attempt is the immutable, finalized record of a completed session.
//
// ID equals the originating session's ID: a session can produce at most one
// attempt, and the ledger enforces that with an idempotent keyed append.
type Attempt struct {
	ID            uuid.UUID            `json:"id"`
	ExamID        uuid.UUID            `json:"exam_id"`
	StudentID     int                  `json:"student_id"`
	StudentName   string               `json:"student_name"`
	AttemptNumber int                  `json:"attempt_number"` // 1-based
	Answers       map[uuid.UUID]Answer `json:"answers"`

	RawScore   float64 `json:"raw_score"`
	MaxScore   float64 `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`

	StartedAt        time.Time `json:"started_at"`
	SubmittedAt      time.Time `json:"submitted_at"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	EndReason        EndReason `json:"end_reason"`
}
