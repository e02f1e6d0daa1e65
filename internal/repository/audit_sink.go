package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/assessio/assessio-backend/internal/config"
	"github.com/assessio/assessio-backend/internal/model"
)

// RedisAuditSink hands finalized audit trails to the downstream consumer
// by pushing entries, in observed order, onto a Redis queue. The audit
// worker drains the queue into PostgreSQL in batches; a pipeline keeps the
// push atomic enough that order is preserved per session.
type RedisAuditSink struct {
	rdb *redis.Client
}

// NewRedisAuditSink creates a new RedisAuditSink.
func NewRedisAuditSink(rdb *redis.Client) *RedisAuditSink {
	return &RedisAuditSink{rdb: rdb}
}

// Flush enqueues every entry in order. All-or-nothing: a pipeline error
// means nothing was delivered and the caller may retry.
func (s *RedisAuditSink) Flush(ctx context.Context, entries []model.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := s.rdb.TxPipeline()
	for i := range entries {
		raw, err := json.Marshal(entries[i])
		if err != nil {
			return fmt.Errorf("encode audit entry: %w", err)
		}
		pipe.RPush(ctx, config.WorkerKey.PersistAuditQueue, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("flush audit: %w", err)
	}
	return nil
}

// MemoryAuditSink collects flushed entries in memory for tests.
type MemoryAuditSink struct {
	mu      sync.Mutex
	entries []model.AuditEntry

	// FailFlushes makes the next n Flush calls fail.
	FailFlushes int
}

// NewMemoryAuditSink creates an empty MemoryAuditSink.
func NewMemoryAuditSink() *MemoryAuditSink {
	return &MemoryAuditSink{}
}

// Flush appends the batch in order.
func (s *MemoryAuditSink) Flush(ctx context.Context, entries []model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFlushes > 0 {
		s.FailFlushes--
		return fmt.Errorf("flush audit: sink unavailable")
	}
	s.entries = append(s.entries, entries...)
	return nil
}

// Entries returns everything flushed so far, in delivery order.
func (s *MemoryAuditSink) Entries() []model.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// List filters flushed entries by (student, exam), so the memory sink can
// double as the archive when running without PostgreSQL.
func (s *MemoryAuditSink) List(ctx context.Context, examID uuid.UUID, studentID int) ([]model.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AuditEntry
	for i := range s.entries {
		if s.entries[i].ExamID == examID && s.entries[i].StudentID == studentID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}
