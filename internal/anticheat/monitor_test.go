package anticheat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assessio/assessio-backend/internal/model"
)

type recordingHandler struct {
	mu      sync.Mutex
	signals []Signal
}

func (h *recordingHandler) HandleSignal(ctx context.Context, key model.SessionKey, sig Signal) {
	h.mu.Lock()
	h.signals = append(h.signals, sig)
	h.mu.Unlock()
}

func (h *recordingHandler) recorded() []Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Signal, len(h.signals))
	copy(out, h.signals)
	return out
}

func TestSignalEventKindMapping(t *testing.T) {
	tests := []struct {
		kind SignalKind
		want model.EventKind
	}{
		{SignalTabSwitch, model.EventTabSwitchDetected},
		{SignalCopyAttempt, model.EventCopyAttemptDetected},
		{SignalCutAttempt, model.EventCutAttemptDetected},
		{SignalPasteAttempt, model.EventPasteAttemptDetected},
		{SignalRightClick, model.EventRightClickDetected},
		{SignalUnloadIntent, model.EventUnloadDetected},
		{SignalFullscreenEnter, model.EventFullscreenEntered},
		{SignalFullscreenExit, model.EventFullscreenExited},
	}

	for _, tt := range tests {
		got, ok := Signal{Kind: tt.kind}.EventKind()
		require.True(t, ok, "kind %s", tt.kind)
		assert.Equal(t, tt.want, got)
	}

	_, ok := Signal{Kind: "osmosis"}.EventKind()
	assert.False(t, ok)
}

func TestMonitorPumpsSignalsInOrder(t *testing.T) {
	key := model.SessionKey{ExamID: uuid.New(), StudentID: 1}
	source := NewChannelSource(8)
	handler := &recordingHandler{}

	monitor := NewMonitor(key, source, handler, zerolog.Nop())
	monitor.Start(context.Background())

	require.True(t, source.Offer(Signal{Kind: SignalTabSwitch}))
	require.True(t, source.Offer(Signal{Kind: SignalCopyAttempt}))
	require.True(t, source.Offer(Signal{Kind: SignalFullscreenExit}))

	require.Eventually(t, func() bool {
		return len(handler.recorded()) == 3
	}, time.Second, 5*time.Millisecond)

	source.Close()
	monitor.Stop()

	got := handler.recorded()
	require.Len(t, got, 3)
	assert.Equal(t, SignalTabSwitch, got[0].Kind)
	assert.Equal(t, SignalCopyAttempt, got[1].Kind)
	assert.Equal(t, SignalFullscreenExit, got[2].Kind)
}

func TestChannelSourceDropsUnderBackpressure(t *testing.T) {
	source := NewChannelSource(1)
	defer source.Close()

	assert.True(t, source.Offer(Signal{Kind: SignalTabSwitch}))
	assert.False(t, source.Offer(Signal{Kind: SignalTabSwitch}))
}

func TestMonitorStopIsIdempotent(t *testing.T) {
	key := model.SessionKey{ExamID: uuid.New(), StudentID: 2}
	source := NewChannelSource(1)
	handler := &recordingHandler{}

	monitor := NewMonitor(key, source, handler, zerolog.Nop())
	monitor.Start(context.Background())

	done := make(chan struct{})
	go func() {
		monitor.Stop()
		monitor.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
