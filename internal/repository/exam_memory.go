package repository

import (
	"context"
	"sync"

	"github.com/assessio/assessio-backend/internal/model"
	"github.com/google/uuid"
)

// MemoryQuestionBank is a fixture-backed question bank for tests and dev.
type MemoryQuestionBank struct {
	mu    sync.RWMutex
	exams map[uuid.UUID]*model.ExamDefinition
}

// NewMemoryQuestionBank creates a question bank holding the given exams.
func NewMemoryQuestionBank(exams ...*model.ExamDefinition) *MemoryQuestionBank {
	b := &MemoryQuestionBank{exams: make(map[uuid.UUID]*model.ExamDefinition, len(exams))}
	for _, e := range exams {
		b.exams[e.ID] = e
	}
	return b
}

// ExamByID returns the exam definition, or ErrNotFound.
func (b *MemoryQuestionBank) ExamByID(ctx context.Context, id uuid.UUID) (*model.ExamDefinition, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	exam, ok := b.exams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return exam, nil
}
