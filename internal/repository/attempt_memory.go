package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/assessio/assessio-backend/internal/model"
	"github.com/google/uuid"
)

// MemoryAttemptLedger is an in-process attempt ledger for tests and dev.
// It mirrors the PostgreSQL driver's idempotent, append-only semantics.
type MemoryAttemptLedger struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]struct{}
	attempts []model.Attempt

	// FailAppends makes the next n Append calls fail, for retry-path tests.
	FailAppends int
}

// NewMemoryAttemptLedger creates an empty MemoryAttemptLedger.
func NewMemoryAttemptLedger() *MemoryAttemptLedger {
	return &MemoryAttemptLedger{byID: make(map[uuid.UUID]struct{})}
}

// Append records a finalized attempt. Idempotent by attempt id.
func (r *MemoryAttemptLedger) Append(ctx context.Context, a *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailAppends > 0 {
		r.FailAppends--
		return fmt.Errorf("append attempt: ledger unavailable")
	}

	if _, dup := r.byID[a.ID]; dup {
		return nil
	}
	r.byID[a.ID] = struct{}{}
	r.attempts = append(r.attempts, *a)
	return nil
}

// Count returns how many finalized attempts exist for (student, exam).
func (r *MemoryAttemptLedger) Count(ctx context.Context, examID uuid.UUID, studentID int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for i := range r.attempts {
		if r.attempts[i].ExamID == examID && r.attempts[i].StudentID == studentID {
			n++
		}
	}
	return n, nil
}

// ByID retrieves a single attempt, or ErrNotFound.
func (r *MemoryAttemptLedger) ByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.attempts {
		if r.attempts[i].ID == id {
			a := r.attempts[i]
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

// List returns all attempts for (student, exam) ordered by attempt number.
func (r *MemoryAttemptLedger) List(ctx context.Context, examID uuid.UUID, studentID int) ([]model.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Attempt
	for i := range r.attempts {
		if r.attempts[i].ExamID == examID && r.attempts[i].StudentID == studentID {
			out = append(out, r.attempts[i])
		}
	}
	return out, nil
}

// Best returns the highest-percentage attempt, or ErrNotFound.
func (r *MemoryAttemptLedger) Best(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	attempts, _ := r.List(ctx, examID, studentID)
	if len(attempts) == 0 {
		return nil, ErrNotFound
	}
	best := attempts[0]
	for _, a := range attempts[1:] {
		if a.Percentage > best.Percentage {
			best = a
		}
	}
	return &best, nil
}
