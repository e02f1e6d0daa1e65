package model

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the fixed vocabulary of audit events.
type EventKind string

const (
	EventSessionStarted       EventKind = "session_started"
	EventSessionSubmitted     EventKind = "session_submitted"
	EventSessionAutoSubmitted EventKind = "session_auto_submitted"
	EventSessionTimedOut      EventKind = "session_timed_out"
	EventSessionAbandoned     EventKind = "session_abandoned"
	EventSessionPaused        EventKind = "session_paused"
	EventSessionResumed       EventKind = "session_resumed"
	EventTimeoutWarning       EventKind = "timeout_warning"
	EventQuestionViewed       EventKind = "question_viewed"
	EventAnswerChanged        EventKind = "answer_changed"

	EventTabSwitchDetected    EventKind = "tab_switch_detected"
	EventTabSwitchLimit       EventKind = "tab_switch_limit_reached"
	EventCopyAttemptDetected  EventKind = "copy_attempt_detected"
	EventCutAttemptDetected   EventKind = "cut_attempt_detected"
	EventPasteAttemptDetected EventKind = "paste_attempt_detected"
	EventRightClickDetected   EventKind = "right_click_detected"
	EventUnloadDetected       EventKind = "unload_attempt_detected"
	EventFullscreenEntered    EventKind = "fullscreen_entered"
	EventFullscreenExited     EventKind = "fullscreen_exited"
)

// AuditEntry is one immutable record of a security- or progress-relevant
// event during a session. Entries are only ever appended; ordering is the
// order of observation by the engine, never client-supplied.
type AuditEntry struct {
	ID         uuid.UUID      `json:"id"`
	ExamID     uuid.UUID      `json:"exam_id"`
	StudentID  int            `json:"student_id"`
	Kind       EventKind      `json:"kind"`
	ObservedAt time.Time      `json:"observed_at"`
	Detail     map[string]any `json:"detail,omitempty"`

	// Optional client metadata captured at observation time.
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}
