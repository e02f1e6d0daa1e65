package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress    SessionStatus = "IN_PROGRESS"
	SessionStatusPaused        SessionStatus = "PAUSED"
	SessionStatusSubmitted     SessionStatus = "SUBMITTED"
	SessionStatusAutoSubmitted SessionStatus = "AUTO_SUBMITTED"
	SessionStatusTimedOut      SessionStatus = "TIMED_OUT"
	SessionStatusAbandoned     SessionStatus = "ABANDONED"
)

// Terminal reports whether the status ends the session lifecycle.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionStatusSubmitted, SessionStatusAutoSubmitted, SessionStatusTimedOut, SessionStatusAbandoned:
		return true
	}
	return false
}

// SessionKey identifies the single session slot for a (student, exam) pair.
type SessionKey struct {
	ExamID    uuid.UUID
	StudentID int
}

// String renders the key in the canonical storage form.
func (k SessionKey) String() string {
	return fmt.Sprintf("student:%d:exam:%s:session", k.StudentID, k.ExamID)
}

// ExamSession is a student's in-flight timed attempt at one exam.
//
// Remaining time is always derived from Deadline, never counted down, so a
// reloaded or crash-recovered session computes the exact same value.
type ExamSession struct {
	ID          uuid.UUID     `json:"id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	StudentID   int           `json:"student_id"`
	StudentName string        `json:"student_name"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	Deadline    time.Time     `json:"deadline"`

	CurrentIndex int                  `json:"current_index"`
	Answers      map[uuid.UUID]Answer `json:"answers"`

	// QuestionOrder is the presentation order, a permutation of question
	// indices fixed at start. OptionOrder permutes each question's options.
	QuestionOrder []int               `json:"question_order"`
	OptionOrder   map[uuid.UUID][]int `json:"option_order,omitempty"`

	TabSwitches   int           `json:"tab_switches"`
	PausedAt      *time.Time    `json:"paused_at,omitempty"`
	PausedTotal   time.Duration `json:"paused_total"`
	TimeoutWarned bool          `json:"timeout_warned"`
}

// Key returns the storage key for this session.
func (s *ExamSession) Key() SessionKey {
	return SessionKey{ExamID: s.ExamID, StudentID: s.StudentID}
}

// Remaining computes the wall-clock time left before the deadline.
// Never negative.
func (s *ExamSession) Remaining(now time.Time) time.Duration {
	remaining := s.Deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the deadline has passed at the given instant.
func (s *ExamSession) Expired(now time.Time) bool {
	return !now.Before(s.Deadline)
}
