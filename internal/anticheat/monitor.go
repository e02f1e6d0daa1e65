// Package anticheat turns client environment signals (tab switches, copy
// attempts, fullscreen changes) into session audit events. The package
// only classifies and routes; policy lives with the signal handler.
package anticheat

import (
	"context"
	"sync"

	"github.com/assessio/assessio-backend/internal/model"
	"github.com/rs/zerolog"
)

// SignalKind identifies one class of client environment signal.
type SignalKind string

const (
	SignalTabSwitch       SignalKind = "tab_switch"
	SignalCopyAttempt     SignalKind = "copy_attempt"
	SignalCutAttempt      SignalKind = "cut_attempt"
	SignalPasteAttempt    SignalKind = "paste_attempt"
	SignalRightClick      SignalKind = "right_click"
	SignalUnloadIntent    SignalKind = "unload_intent"
	SignalFullscreenEnter SignalKind = "fullscreen_enter"
	SignalFullscreenExit  SignalKind = "fullscreen_exit"
)

// Signal is one observed client event, as reported over the session's
// event channel.
type Signal struct {
	Kind      SignalKind     `json:"kind"`
	Detail    map[string]any `json:"detail,omitempty"`
	ClientIP  string         `json:"-"`
	UserAgent string         `json:"-"`
}

var eventKinds = map[SignalKind]model.EventKind{
	SignalTabSwitch:       model.EventTabSwitchDetected,
	SignalCopyAttempt:     model.EventCopyAttemptDetected,
	SignalCutAttempt:      model.EventCutAttemptDetected,
	SignalPasteAttempt:    model.EventPasteAttemptDetected,
	SignalRightClick:      model.EventRightClickDetected,
	SignalUnloadIntent:    model.EventUnloadDetected,
	SignalFullscreenEnter: model.EventFullscreenEntered,
	SignalFullscreenExit:  model.EventFullscreenExited,
}

// EventKind maps the signal to its audit event kind. The second return is
// false for unrecognized kinds, which callers drop.
func (s Signal) EventKind() (model.EventKind, bool) {
	kind, ok := eventKinds[s.Kind]
	return kind, ok
}

// Source yields signals for one session. Signals returns a channel that
// the source closes when no more signals will arrive.
type Source interface {
	Signals() <-chan Signal
}

// Handler consumes classified signals for a session.
type Handler interface {
	HandleSignal(ctx context.Context, key model.SessionKey, sig Signal)
}

// ChannelSource is a Source fed programmatically, typically by a
// websocket read loop.
type ChannelSource struct {
	ch     chan Signal
	closed sync.Once
}

// NewChannelSource creates a buffered ChannelSource.
func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{ch: make(chan Signal, buffer)}
}

func (s *ChannelSource) Signals() <-chan Signal {
	return s.ch
}

// Offer enqueues a signal without blocking. Reports false when the buffer
// is full; a dropped signal is an accepted loss under backpressure.
func (s *ChannelSource) Offer(sig Signal) bool {
	select {
	case s.ch <- sig:
		return true
	default:
		return false
	}
}

// Close ends the signal stream. Idempotent.
func (s *ChannelSource) Close() {
	s.closed.Do(func() { close(s.ch) })
}

// Monitor pumps one session's signal source into a handler.
type Monitor struct {
	key     model.SessionKey
	source  Source
	handler Handler
	log     zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewMonitor creates a monitor for one session's signal stream.
func NewMonitor(key model.SessionKey, source Source, handler Handler, log zerolog.Logger) *Monitor {
	return &Monitor{
		key:     key,
		source:  source,
		handler: handler,
		log: log.With().
			Str("component", "anticheat_monitor").
			Stringer("exam_id", key.ExamID).
			Int("student_id", key.StudentID).
			Logger(),
		done: make(chan struct{}),
	}
}

// Start begins pumping signals until the source closes or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	go func() {
		defer close(m.done)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-m.source.Signals():
				if !ok {
					return
				}
				m.handler.HandleSignal(ctx, m.key, sig)
			}
		}
	}()

	m.log.Debug().Msg("Signal monitor started")
}

// Stop halts the pump and waits for in-flight handling to finish.
// Idempotent; safe to call from session teardown and connection close.
func (m *Monitor) Stop() {
	m.once.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		<-m.done
	})
}
