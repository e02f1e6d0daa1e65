package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/assessio/assessio-backend/internal/model"
)

// MemorySessionStore is an in-process session store for tests and dev.
// Records round-trip through JSON so callers get the same copy semantics
// (and the same serialization faults) as the durable drivers.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	audit    map[string][]model.AuditEntry

	// FailSaves makes the next n Save calls fail, for retry-path tests.
	FailSaves int
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string][]byte),
		audit:    make(map[string][]model.AuditEntry),
	}
}

// Load retrieves the session for the given key, or ErrNotFound.
func (s *MemorySessionStore) Load(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	s.mu.RLock()
	raw, ok := s.sessions[key.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var sess model.ExamSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Save writes the full session record.
func (s *MemorySessionStore) Save(ctx context.Context, sess *model.ExamSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSaves > 0 {
		s.FailSaves--
		return fmt.Errorf("save session: store unavailable")
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	s.sessions[sess.Key().String()] = raw
	return nil
}

// Delete removes the session record and its working audit log.
func (s *MemorySessionStore) Delete(ctx context.Context, key model.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key.String())
	delete(s.audit, key.String())
	return nil
}

// AppendAudit appends one entry to the session's working audit log.
func (s *MemorySessionStore) AppendAudit(ctx context.Context, key model.SessionKey, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit[key.String()] = append(s.audit[key.String()], entry)
	return nil
}

// AuditTrail returns the working audit log in append order.
func (s *MemorySessionStore) AuditTrail(ctx context.Context, key model.SessionKey) ([]model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.audit[key.String()]
	out := make([]model.AuditEntry, len(entries))
	copy(out, entries)
	return out, nil
}
