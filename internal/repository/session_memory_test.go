package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assessio/assessio-backend/internal/model"
)

func TestMemorySessionStoreReturnsIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	key := model.SessionKey{ExamID: uuid.New(), StudentID: 3}
	qID := uuid.New()
	sess := &model.ExamSession{
		ID:        uuid.New(),
		ExamID:    key.ExamID,
		StudentID: key.StudentID,
		Status:    model.SessionStatusInProgress,
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Deadline:  time.Now().UTC().Add(time.Hour).Truncate(time.Second),
		Answers:   map[uuid.UUID]model.Answer{qID: {Value: "first"}},
	}
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	loaded.Answers[qID] = model.Answer{Value: "mutated"}

	// Mutating a loaded copy must not leak into the store.
	reloaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "first", reloaded.Answers[qID].Value)
}

func TestMemorySessionStoreAuditOrderAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	key := model.SessionKey{ExamID: uuid.New(), StudentID: 4}

	for _, kind := range []model.EventKind{
		model.EventSessionStarted,
		model.EventAnswerChanged,
		model.EventTabSwitchDetected,
	} {
		require.NoError(t, store.AppendAudit(ctx, key, model.AuditEntry{ID: uuid.New(), Kind: kind}))
	}

	trail, err := store.AuditTrail(ctx, key)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, model.EventSessionStarted, trail[0].Kind)
	assert.Equal(t, model.EventTabSwitchDetected, trail[2].Kind)

	require.NoError(t, store.Delete(ctx, key))
	trail, err = store.AuditTrail(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, trail)

	_, err = store.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAttemptLedgerAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryAttemptLedger()

	examID := uuid.New()
	attempt := &model.Attempt{
		ID:            uuid.New(),
		ExamID:        examID,
		StudentID:     9,
		AttemptNumber: 1,
		Percentage:    80,
	}

	require.NoError(t, ledger.Append(ctx, attempt))
	require.NoError(t, ledger.Append(ctx, attempt)) // replay

	count, err := ledger.Count(ctx, examID, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	best, err := ledger.Best(ctx, examID, 9)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, best.ID)
}
