package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/assessio/assessio-backend/internal/anticheat"
	"github.com/assessio/assessio-backend/internal/clock"
	"github.com/assessio/assessio-backend/internal/config"
	"github.com/assessio/assessio-backend/internal/model"
	"github.com/assessio/assessio-backend/internal/repository"
	"github.com/assessio/assessio-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClientMeta is optional request context attached to audit entries.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// PresentedQuestion is a question as shown to the student: presentation
// order applied, answer key stripped.
type PresentedQuestion struct {
	ID      uuid.UUID          `json:"id"`
	Text    string             `json:"text"`
	Type    model.QuestionType `json:"type"`
	Options []string           `json:"options,omitempty"`
	Points  float64            `json:"points"`
	Index   int                `json:"index"`
	Total   int                `json:"total"`
}

// SessionManager owns the exam session state machine: start, answer,
// navigate, tick, submit, auto-submit, abandon.
//
// Operations against the same session are serialized behind a per-key
// mutex; independent sessions never contend. At most one attempt is ever
// written per session: the status check under the session lock settles
// in-process races between a manual submit and the timer, and the ledger's
// idempotent keyed append settles replays after partial failures.
type SessionManager struct {
	cfg    *config.Config
	store  SessionStore
	ledger AttemptLedger
	bank   QuestionBank
	sink   AuditSink
	clock  clock.Clock
	log    zerolog.Logger

	mu       sync.Mutex
	locks    map[model.SessionKey]*sync.Mutex
	timers   map[model.SessionKey]*sessionTimer
	cleanups map[model.SessionKey][]func()
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(
	cfg *config.Config,
	store SessionStore,
	ledger AttemptLedger,
	bank QuestionBank,
	sink AuditSink,
	clk clock.Clock,
	log zerolog.Logger,
) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		store:    store,
		ledger:   ledger,
		bank:     bank,
		sink:     sink,
		clock:    clk,
		log:      log.With().Str("component", "session_manager").Logger(),
		locks:    make(map[model.SessionKey]*sync.Mutex),
		timers:   make(map[model.SessionKey]*sessionTimer),
		cleanups: make(map[model.SessionKey][]func()),
	}
}

// lockFor returns the mutex serializing one session's operations.
// Locks are kept for the manager's lifetime; the map is bounded by the
// number of (student, exam) pairs seen.
func (m *SessionManager) lockFor(key model.SessionKey) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// ─── Lifecycle ──────────────────────────────────────────────────────

// Start creates a session for (student, exam). Rejects when a non-terminal
// session exists or the attempt ledger already holds max-attempts
// finalized attempts. The deadline is fixed here and never mutated.
func (m *SessionManager) Start(ctx context.Context, examID uuid.UUID, studentID int, studentName string, meta ClientMeta) (*model.ExamSession, error) {
	exam, err := m.bank.ExamByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}

	key := model.SessionKey{ExamID: examID, StudentID: studentID}
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	existing, err := m.store.Load(ctx, key)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if existing != nil && !existing.Status.Terminal() {
		return nil, ErrSessionAlreadyActive
	}

	// Abandoned sessions do not consume attempt slots, so the count of
	// finalized attempts is the only gate.
	count, err := m.ledger.Count(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if exam.MaxAttempts > 0 && count >= exam.MaxAttempts {
		return nil, ErrAttemptsExhausted
	}

	now := m.clock.Now()
	sess := &model.ExamSession{
		ID:            uuid.New(),
		ExamID:        examID,
		StudentID:     studentID,
		StudentName:   studentName,
		Status:        model.SessionStatusInProgress,
		StartedAt:     now,
		Deadline:      now.Add(exam.Duration()),
		Answers:       make(map[uuid.UUID]model.Answer),
		QuestionOrder: presentationOrder(exam),
		OptionOrder:   optionOrders(exam),
	}

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	m.audit(ctx, sess, model.EventSessionStarted, map[string]any{
		"attempt_number": count + 1,
		"deadline":       sess.Deadline,
	}, meta)

	m.startTimer(key)
	return sess, nil
}

// Answer records one answer, last write wins. Persisted (with bounded
// retry) before returning, since the deadline is unforgiving.
func (m *SessionManager) Answer(ctx context.Context, key model.SessionKey, questionID uuid.UUID, value model.Answer) error {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	sess, err := m.loadActive(ctx, key)
	if err != nil {
		return err
	}

	sess.Answers[questionID] = value
	if err := m.saveWithRetry(ctx, sess); err != nil {
		return err
	}

	m.audit(ctx, sess, model.EventAnswerChanged, map[string]any{
		"question_id": questionID,
	}, ClientMeta{})
	return nil
}

// Navigate moves the current question pointer. Out-of-range targets are
// clamped, never an error: navigation is advisory UI state.
func (m *SessionManager) Navigate(ctx context.Context, key model.SessionKey, index int) error {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()
	return m.navigateLocked(ctx, key, index)
}

// Next advances the current question pointer by one (clamped).
func (m *SessionManager) Next(ctx context.Context, key model.SessionKey) error {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	sess, err := m.loadActive(ctx, key)
	if err != nil {
		return err
	}
	return m.navigateSession(ctx, sess, sess.CurrentIndex+1)
}

// Previous moves the current question pointer back by one (clamped).
func (m *SessionManager) Previous(ctx context.Context, key model.SessionKey) error {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	sess, err := m.loadActive(ctx, key)
	if err != nil {
		return err
	}
	return m.navigateSession(ctx, sess, sess.CurrentIndex-1)
}

func (m *SessionManager) navigateLocked(ctx context.Context, key model.SessionKey, index int) error {
	sess, err := m.loadActive(ctx, key)
	if err != nil {
		return err
	}
	return m.navigateSession(ctx, sess, index)
}

func (m *SessionManager) navigateSession(ctx context.Context, sess *model.ExamSession, index int) error {
	if index < 0 {
		index = 0
	}
	if max := len(sess.QuestionOrder) - 1; index > max {
		index = max
	}

	sess.CurrentIndex = index
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	m.audit(ctx, sess, model.EventQuestionViewed, map[string]any{
		"index": index,
	}, ClientMeta{})
	return nil
}

// Tick recomputes remaining time and auto-submits at expiry. Driven by the
// per-session timer; safe to call directly (tests, external schedulers).
func (m *SessionManager) Tick(ctx context.Context, key model.SessionKey) error {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	sess, err := m.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Session already finalized or abandoned.
			m.stopTimer(key)
			return nil
		}
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	if sess.Status != model.SessionStatusInProgress {
		// Paused sessions just wait; resume extends the deadline.
		return nil
	}

	now := m.clock.Now()
	remaining := sess.Remaining(now)

	if !sess.TimeoutWarned && remaining > 0 && remaining <= m.cfg.TimeoutWarning {
		sess.TimeoutWarned = true
		if err := m.store.Save(ctx, sess); err != nil {
			m.log.Error().Err(err).Msg("Failed to persist timeout warning flag")
		} else {
			m.audit(ctx, sess, model.EventTimeoutWarning, map[string]any{
				"remaining_seconds": int(remaining.Seconds()),
			}, ClientMeta{})
		}
	}

	if sess.Expired(now) {
		_, err := m.finalize(ctx, sess, model.SessionStatusAutoSubmitted, model.EndReasonAutoSubmitted)
		return err
	}
	return nil
}

// Submit finalizes the session on the student's request. Rejects with
// ErrSubmittedTooEarly under the configured minimum elapsed time.
// Idempotent: a submit racing (or following) the timer-driven auto-submit
// returns the attempt that was already recorded.
func (m *SessionManager) Submit(ctx context.Context, key model.SessionKey) (*model.Attempt, error) {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	sess, err := m.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return m.recordedOutcome(ctx, key)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if sess.Status == model.SessionStatusPaused {
		return nil, ErrSessionPaused
	}
	if sess.Status != model.SessionStatusInProgress {
		return nil, ErrSessionNotActive
	}

	now := m.clock.Now()
	if sess.Expired(now) {
		// The deadline lapsed before the timer caught it (suspension,
		// clock skew on the client); the outcome is timeout-driven.
		return m.finalize(ctx, sess, model.SessionStatusTimedOut, model.EndReasonTimedOut)
	}
	if now.Sub(sess.StartedAt)-sess.PausedTotal < m.cfg.MinTimeBeforeSubmit {
		return nil, ErrSubmittedTooEarly
	}

	return m.finalize(ctx, sess, model.SessionStatusSubmitted, model.EndReasonSubmitted)
}

// AutoSubmit finalizes without the minimum-elapsed-time check and tags the
// attempt as timeout-driven. Same idempotency as Submit.
func (m *SessionManager) AutoSubmit(ctx context.Context, key model.SessionKey) (*model.Attempt, error) {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	sess, err := m.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return m.recordedOutcome(ctx, key)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if sess.Status != model.SessionStatusInProgress {
		return nil, ErrSessionNotActive
	}

	return m.finalize(ctx, sess, model.SessionStatusAutoSubmitted, model.EndReasonAutoSubmitted)
}

// Abandon ends the session without writing an attempt: an abandoned
// session does not consume an attempt slot. Valid only from in-progress.
func (m *SessionManager) Abandon(ctx context.Context, key model.SessionKey) error {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	sess, err := m.loadActive(ctx, key)
	if err != nil {
		return err
	}

	// A retry after a failed flush must not stack a second terminal entry
	// onto the trail.
	trail, err := m.store.AuditTrail(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if len(trail) == 0 || trail[len(trail)-1].Kind != model.EventSessionAbandoned {
		m.audit(ctx, sess, model.EventSessionAbandoned, nil, ClientMeta{})
	}

	if err := m.flushAndDelete(ctx, key); err != nil {
		return err
	}
	m.teardown(key)
	return nil
}

// Pause suspends the session clock. Config-gated; disabled by default.
func (m *SessionManager) Pause(ctx context.Context, key model.SessionKey) error {
	if !m.cfg.AllowPause {
		return ErrPauseDisabled
	}

	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	sess, err := m.loadActive(ctx, key)
	if err != nil {
		return err
	}

	now := m.clock.Now()
	sess.Status = model.SessionStatusPaused
	sess.PausedAt = &now
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	m.audit(ctx, sess, model.EventSessionPaused, nil, ClientMeta{})
	return nil
}

// Resume reactivates a paused session, extending the deadline by the
// paused duration rather than touching the original start time.
func (m *SessionManager) Resume(ctx context.Context, key model.SessionKey) error {
	if !m.cfg.AllowPause {
		return ErrPauseDisabled
	}

	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	sess, err := m.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotActive
		}
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if sess.Status != model.SessionStatusPaused || sess.PausedAt == nil {
		return ErrSessionNotActive
	}

	paused := m.clock.Now().Sub(*sess.PausedAt)
	sess.Deadline = sess.Deadline.Add(paused)
	sess.PausedTotal += paused
	sess.PausedAt = nil
	sess.Status = model.SessionStatusInProgress
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	m.audit(ctx, sess, model.EventSessionResumed, map[string]any{
		"paused_seconds": int(paused.Seconds()),
	}, ClientMeta{})
	return nil
}

// ─── Anti-cheat signals ─────────────────────────────────────────────

// HandleSignal converts one environment signal into audit state. It never
// fails: malformed or late signals are logged and dropped, and crossing
// the tab-switch threshold only flags the session for review — it never
// terminates it.
func (m *SessionManager) HandleSignal(ctx context.Context, key model.SessionKey, sig anticheat.Signal) {
	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	sess, err := m.store.Load(ctx, key)
	if err != nil {
		m.log.Debug().Err(err).Stringer("exam_id", key.ExamID).Int("student_id", key.StudentID).
			Msg("Dropping signal without active session")
		return
	}
	if sess.Status != model.SessionStatusInProgress {
		return
	}

	kind, ok := sig.EventKind()
	if !ok {
		m.log.Warn().Str("signal", string(sig.Kind)).Msg("Dropping unknown signal kind")
		return
	}

	meta := ClientMeta{IP: sig.ClientIP, UserAgent: sig.UserAgent}
	detail := sig.Detail

	if kind == model.EventTabSwitchDetected {
		sess.TabSwitches++
		if err := m.store.Save(ctx, sess); err != nil {
			m.log.Error().Err(err).Msg("Failed to persist tab-switch counter")
		}
		if detail == nil {
			detail = map[string]any{}
		}
		detail["count"] = sess.TabSwitches
	}

	m.audit(ctx, sess, kind, detail, meta)

	if kind == model.EventTabSwitchDetected && m.cfg.MaxTabSwitches > 0 && sess.TabSwitches == m.cfg.MaxTabSwitches {
		m.audit(ctx, sess, model.EventTabSwitchLimit, map[string]any{
			"count":     sess.TabSwitches,
			"threshold": m.cfg.MaxTabSwitches,
		}, meta)
	}
}

// ─── Read accessors ─────────────────────────────────────────────────

// ActiveSession returns the current session for the key. After a process
// restart it also re-arms the session's timer.
func (m *SessionManager) ActiveSession(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	sess, err := m.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotActive
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if sess.Status == model.SessionStatusInProgress {
		m.startTimer(key)
	}
	return sess, nil
}

// RemainingTime derives the time left as deadline minus now. A reloaded
// session computes the same value as one that never left memory.
func (m *SessionManager) RemainingTime(ctx context.Context, key model.SessionKey) (time.Duration, error) {
	sess, err := m.ActiveSession(ctx, key)
	if err != nil {
		return 0, err
	}
	return sess.Remaining(m.clock.Now()), nil
}

// CurrentQuestion returns the question under the session's pointer, with
// the presentation order applied and the answer key stripped.
func (m *SessionManager) CurrentQuestion(ctx context.Context, key model.SessionKey) (*PresentedQuestion, error) {
	sess, err := m.ActiveSession(ctx, key)
	if err != nil {
		return nil, err
	}

	exam, err := m.bank.ExamByID(ctx, sess.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}
	if len(sess.QuestionOrder) == 0 || sess.CurrentIndex >= len(sess.QuestionOrder) {
		return nil, ErrSessionNotActive
	}

	q := exam.Questions[sess.QuestionOrder[sess.CurrentIndex]]
	options := q.Options
	if perm, ok := sess.OptionOrder[q.ID]; ok && len(perm) == len(q.Options) {
		options = make([]string, len(perm))
		for i, src := range perm {
			options[i] = q.Options[src]
		}
	}

	return &PresentedQuestion{
		ID:      q.ID,
		Text:    q.Text,
		Type:    q.Type,
		Options: options,
		Points:  q.Points,
		Index:   sess.CurrentIndex,
		Total:   len(sess.QuestionOrder),
	}, nil
}

// AuditTrail returns the session's working audit log in observed order.
func (m *SessionManager) AuditTrail(ctx context.Context, key model.SessionKey) ([]model.AuditEntry, error) {
	return m.store.AuditTrail(ctx, key)
}

// Attempts lists all finalized attempts for (student, exam).
func (m *SessionManager) Attempts(ctx context.Context, examID uuid.UUID, studentID int) ([]model.Attempt, error) {
	return m.ledger.List(ctx, examID, studentID)
}

// BestScore returns the highest-percentage attempt, or nil when none exist.
func (m *SessionManager) BestScore(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	best, err := m.ledger.Best(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return best, nil
}

// HasPassed reports whether any finalized attempt passed the exam.
func (m *SessionManager) HasPassed(ctx context.Context, examID uuid.UUID, studentID int) (bool, error) {
	attempts, err := m.ledger.List(ctx, examID, studentID)
	if err != nil {
		return false, err
	}
	for i := range attempts {
		if attempts[i].Passed {
			return true, nil
		}
	}
	return false, nil
}

// ─── Internals ──────────────────────────────────────────────────────

// loadActive loads the session and requires it to be in progress.
func (m *SessionManager) loadActive(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	sess, err := m.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotActive
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	switch sess.Status {
	case model.SessionStatusInProgress:
		return sess, nil
	case model.SessionStatusPaused:
		return nil, ErrSessionPaused
	default:
		return nil, ErrSessionNotActive
	}
}

// finalize turns an in-progress session into exactly one attempt. The
// caller holds the session lock and has verified the status.
//
// The terminal status is never written back to the store: if any step
// fails the stored session remains in progress, so a retried submit or
// auto-submit can finish the job. Replays are safe because the attempt is
// keyed by session id and looked up before scoring.
func (m *SessionManager) finalize(ctx context.Context, sess *model.ExamSession, status model.SessionStatus, reason model.EndReason) (*model.Attempt, error) {
	key := sess.Key()
	sess.Status = status

	attempt, err := m.ledger.ByID(ctx, sess.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	if attempt == nil {
		exam, err := m.bank.ExamByID(ctx, sess.ExamID)
		if err != nil {
			return nil, fmt.Errorf("load exam: %w", err)
		}
		result := scoring.Score(exam, sess.Answers)

		// Attempt number comes from the ledger count at finalization
		// time, not a client-held counter.
		count, err := m.ledger.Count(ctx, sess.ExamID, sess.StudentID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}

		now := m.clock.Now()
		attempt = &model.Attempt{
			ID:               sess.ID,
			ExamID:           sess.ExamID,
			StudentID:        sess.StudentID,
			StudentName:      sess.StudentName,
			AttemptNumber:    count + 1,
			Answers:          sess.Answers,
			RawScore:         result.RawScore,
			MaxScore:         result.MaxScore,
			Percentage:       result.Percentage,
			Passed:           result.Passed,
			StartedAt:        sess.StartedAt,
			SubmittedAt:      now,
			TimeSpentSeconds: int((now.Sub(sess.StartedAt) - sess.PausedTotal).Seconds()),
			EndReason:        reason,
		}

		if err := m.ledger.Append(ctx, attempt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}

		m.audit(ctx, sess, terminalEvent(status), map[string]any{
			"attempt_number": attempt.AttemptNumber,
			"percentage":     attempt.Percentage,
			"passed":         attempt.Passed,
		}, ClientMeta{})
	}

	if err := m.flushAndDelete(ctx, key); err != nil {
		return nil, err
	}

	m.teardown(key)

	m.log.Info().
		Stringer("exam_id", sess.ExamID).
		Int("student_id", sess.StudentID).
		Str("end_reason", string(reason)).
		Float64("percentage", attempt.Percentage).
		Msg("Session finalized")

	return attempt, nil
}

// flushAndDelete delivers the working audit log to the sink, then removes
// the session record. History must outlive the session, so the flush
// strictly precedes the delete.
func (m *SessionManager) flushAndDelete(ctx context.Context, key model.SessionKey) error {
	entries, err := m.store.AuditTrail(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if err := m.sink.Flush(ctx, entries); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if err := m.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return nil
}

// recordedOutcome serves the idempotent path: the session record is gone,
// so if an attempt exists for this (student, exam) the latest one is the
// result the caller raced against.
func (m *SessionManager) recordedOutcome(ctx context.Context, key model.SessionKey) (*model.Attempt, error) {
	attempts, err := m.ledger.List(ctx, key.ExamID, key.StudentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if len(attempts) == 0 {
		return nil, ErrSessionNotActive
	}
	latest := attempts[len(attempts)-1]
	return &latest, nil
}

// saveWithRetry persists the session with bounded linear backoff. Losing
// an answer is costly, so transient store failures get a few more chances
// before surfacing.
func (m *SessionManager) saveWithRetry(ctx context.Context, sess *model.ExamSession) error {
	var err error
	for try := 0; try <= m.cfg.AnswerSaveRetries; try++ {
		if try > 0 {
			time.Sleep(time.Duration(try) * m.cfg.AnswerRetryBackoff)
		}
		if err = m.store.Save(ctx, sess); err == nil {
			return nil
		}
		m.log.Warn().Err(err).Int("try", try+1).Msg("Session save failed")
	}
	return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
}

// audit appends one entry to the working log. Append failures are logged,
// not propagated: the mutating operation itself already succeeded.
func (m *SessionManager) audit(ctx context.Context, sess *model.ExamSession, kind model.EventKind, detail map[string]any, meta ClientMeta) {
	entry := model.AuditEntry{
		ID:         uuid.New(),
		ExamID:     sess.ExamID,
		StudentID:  sess.StudentID,
		Kind:       kind,
		ObservedAt: m.clock.Now(),
		Detail:     detail,
		ClientIP:   meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if err := m.store.AppendAudit(ctx, sess.Key(), entry); err != nil {
		m.log.Error().Err(err).Str("kind", string(kind)).Msg("Audit append failed")
	}
}

func terminalEvent(status model.SessionStatus) model.EventKind {
	switch status {
	case model.SessionStatusAutoSubmitted:
		return model.EventSessionAutoSubmitted
	case model.SessionStatusTimedOut:
		return model.EventSessionTimedOut
	default:
		return model.EventSessionSubmitted
	}
}

// presentationOrder fixes the question order at start: identity, or a
// Fisher-Yates permutation when randomization is enabled.
func presentationOrder(exam *model.ExamDefinition) []int {
	order := make([]int, len(exam.Questions))
	for i := range order {
		order[i] = i
	}
	if exam.RandomizeQuestions {
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

// optionOrders builds per-question option permutations when enabled.
func optionOrders(exam *model.ExamDefinition) map[uuid.UUID][]int {
	if !exam.RandomizeOptions {
		return nil
	}
	orders := make(map[uuid.UUID][]int)
	for i := range exam.Questions {
		q := &exam.Questions[i]
		if len(q.Options) == 0 {
			continue
		}
		perm := make([]int, len(q.Options))
		for j := range perm {
			perm[j] = j
		}
		rand.Shuffle(len(perm), func(a, b int) {
			perm[a], perm[b] = perm[b], perm[a]
		})
		orders[q.ID] = perm
	}
	return orders
}
