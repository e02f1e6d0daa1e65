package service

import (
	"context"
	"sync"
	"time"

	"github.com/assessio/assessio-backend/internal/model"
)

// sessionTimer drives one session's countdown. Stopping is idempotent so
// finalization, abandonment and shutdown can all safely race to stop it.
type sessionTimer struct {
	done chan struct{}
	once sync.Once
}

func (t *sessionTimer) stop() {
	t.once.Do(func() { close(t.done) })
}

// startTimer arms the tick loop for a session. Safe to call repeatedly;
// only the first call per key spawns a goroutine. Ticks recompute the
// deadline from absolute timestamps, so a timer re-armed after a restart
// picks up exactly where the previous process left off.
func (m *SessionManager) startTimer(key model.SessionKey) {
	m.mu.Lock()
	if _, exists := m.timers[key]; exists {
		m.mu.Unlock()
		return
	}
	t := &sessionTimer{done: make(chan struct{})}
	m.timers[key] = t
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				if err := m.Tick(context.Background(), key); err != nil {
					m.log.Error().Err(err).
						Stringer("exam_id", key.ExamID).
						Int("student_id", key.StudentID).
						Msg("Session tick failed")
				}
			}
		}
	}()
}

func (m *SessionManager) stopTimer(key model.SessionKey) {
	m.mu.Lock()
	t := m.timers[key]
	delete(m.timers, key)
	m.mu.Unlock()
	if t != nil {
		t.stop()
	}
}

// RegisterCleanup attaches a function to run when the session ends for any
// reason. Used to tear down per-session resources such as signal monitors
// and websocket connections.
func (m *SessionManager) RegisterCleanup(key model.SessionKey, fn func()) {
	m.mu.Lock()
	m.cleanups[key] = append(m.cleanups[key], fn)
	m.mu.Unlock()
}

// teardown stops the timer and runs registered cleanups for the key.
func (m *SessionManager) teardown(key model.SessionKey) {
	m.stopTimer(key)

	m.mu.Lock()
	fns := m.cleanups[key]
	delete(m.cleanups, key)
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Shutdown stops all session timers and runs outstanding cleanups.
// Sessions themselves stay persisted; deadlines are recomputed from
// stored timestamps when the process comes back.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	keys := make([]model.SessionKey, 0, len(m.timers))
	for key := range m.timers {
		keys = append(keys, key)
	}
	for key := range m.cleanups {
		if _, ok := m.timers[key]; !ok {
			keys = append(keys, key)
		}
	}
	m.mu.Unlock()

	for _, key := range keys {
		m.teardown(key)
	}
}
