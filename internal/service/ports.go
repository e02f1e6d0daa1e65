package service

import (
	"context"

	"github.com/assessio/assessio-backend/internal/model"
	"github.com/google/uuid"
)

// SessionStore is durable keyed storage for in-flight sessions and their
// working audit logs. One record per (student, exam); the audit log is
// persisted alongside the session so a crash mid-exam loses no history.
type SessionStore interface {
	Load(ctx context.Context, key model.SessionKey) (*model.ExamSession, error)
	Save(ctx context.Context, sess *model.ExamSession) error
	Delete(ctx context.Context, key model.SessionKey) error
	AppendAudit(ctx context.Context, key model.SessionKey, entry model.AuditEntry) error
	AuditTrail(ctx context.Context, key model.SessionKey) ([]model.AuditEntry, error)
}

// AttemptLedger is the append-only record of finalized attempts and the
// source of truth for attempt-count enforcement. Append must be idempotent
// by attempt id; attempts are never mutated or deleted.
type AttemptLedger interface {
	Append(ctx context.Context, a *model.Attempt) error
	Count(ctx context.Context, examID uuid.UUID, studentID int) (int, error)
	ByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	List(ctx context.Context, examID uuid.UUID, studentID int) ([]model.Attempt, error)
	Best(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error)
}

// QuestionBank provides immutable exam definitions, answer key included.
type QuestionBank interface {
	ExamByID(ctx context.Context, id uuid.UUID) (*model.ExamDefinition, error)
}

// AuditSink receives a session's full audit trail at finalization, in
// observed order, before the session record is deleted.
type AuditSink interface {
	Flush(ctx context.Context, entries []model.AuditEntry) error
}

// AuditArchive reads back trails that have passed through the sink.
// Serves the review side; the engine itself never consults it.
type AuditArchive interface {
	List(ctx context.Context, examID uuid.UUID, studentID int) ([]model.AuditEntry, error)
}
