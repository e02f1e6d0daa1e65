package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/assessio/assessio-backend/internal/anticheat"
	"github.com/assessio/assessio-backend/internal/config"
	"github.com/assessio/assessio-backend/internal/model"
	"github.com/assessio/assessio-backend/internal/repository"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var (
	testQSingle = uuid.New()
	testQMulti  = uuid.New()
	testQShort  = uuid.New()
)

func testExam() *model.ExamDefinition {
	return &model.ExamDefinition{
		ID:              uuid.New(),
		Title:           "Unit Exam",
		DurationMinutes: 30,
		PassingScore:    50,
		MaxAttempts:     5,
		Questions: []model.Question{
			{ID: testQSingle, Type: model.QuestionTypeSingleChoice, Correct: model.Answer{Value: "b"}, Points: 2},
			{ID: testQMulti, Type: model.QuestionTypeMultiChoice, Correct: model.Answer{Values: []string{"A", "C"}}, Points: 3},
			{ID: testQShort, Type: model.QuestionTypeShortAnswer, Correct: model.Answer{Value: "go"}, Points: 5},
		},
	}
}

// SessionManagerSuite wires a manager against real in-memory stores and a
// controlled clock. Ticks are driven by hand; the background timer is
// parked on an interval long enough to never fire.
type SessionManagerSuite struct {
	suite.Suite
	cfg     *config.Config
	store   *repository.MemorySessionStore
	ledger  *repository.MemoryAttemptLedger
	sink    *repository.MemoryAuditSink
	clk     *fakeClock
	manager *SessionManager
	exam    *model.ExamDefinition
	key     model.SessionKey
	ctx     context.Context
}

func (s *SessionManagerSuite) SetupTest() {
	s.cfg = &config.Config{
		MinTimeBeforeSubmit: 30 * time.Second,
		TimeoutWarning:      5 * time.Minute,
		TickInterval:        time.Hour,
		MaxTabSwitches:      3,
		AnswerSaveRetries:   3,
		AnswerRetryBackoff:  time.Millisecond,
	}
	s.store = repository.NewMemorySessionStore()
	s.ledger = repository.NewMemoryAttemptLedger()
	s.sink = repository.NewMemoryAuditSink()
	s.clk = &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	s.exam = testExam()
	bank := repository.NewMemoryQuestionBank(s.exam)
	s.manager = NewSessionManager(s.cfg, s.store, s.ledger, bank, s.sink, s.clk, zerolog.Nop())
	s.key = model.SessionKey{ExamID: s.exam.ID, StudentID: 7}
	s.ctx = context.Background()
}

func (s *SessionManagerSuite) TearDownTest() {
	s.manager.Shutdown()
}

func (s *SessionManagerSuite) start() *model.ExamSession {
	sess, err := s.manager.Start(s.ctx, s.exam.ID, s.key.StudentID, "Dina", ClientMeta{IP: "10.0.0.1"})
	require.NoError(s.T(), err)
	return sess
}

func (s *SessionManagerSuite) trailKinds() []model.EventKind {
	trail, err := s.manager.AuditTrail(s.ctx, s.key)
	require.NoError(s.T(), err)
	kinds := make([]model.EventKind, len(trail))
	for i := range trail {
		kinds[i] = trail[i].Kind
	}
	return kinds
}

func (s *SessionManagerSuite) countKind(kinds []model.EventKind, want model.EventKind) int {
	n := 0
	for _, k := range kinds {
		if k == want {
			n++
		}
	}
	return n
}

func TestSessionManagerSuite(t *testing.T) {
	suite.Run(t, new(SessionManagerSuite))
}

// ─── Lifecycle ──────────────────────────────────────────────────────

func (s *SessionManagerSuite) TestStartFixesDeadline() {
	sess := s.start()

	s.Equal(model.SessionStatusInProgress, sess.Status)
	s.Equal(sess.StartedAt.Add(30*time.Minute), sess.Deadline)
	s.Equal([]int{0, 1, 2}, sess.QuestionOrder)

	kinds := s.trailKinds()
	s.Equal(1, s.countKind(kinds, model.EventSessionStarted))
}

func (s *SessionManagerSuite) TestStartRejectsUnknownExam() {
	_, err := s.manager.Start(s.ctx, uuid.New(), s.key.StudentID, "Dina", ClientMeta{})
	s.ErrorIs(err, ErrExamNotFound)
}

func (s *SessionManagerSuite) TestStartRejectsSecondSession() {
	s.start()
	_, err := s.manager.Start(s.ctx, s.exam.ID, s.key.StudentID, "Dina", ClientMeta{})
	s.ErrorIs(err, ErrSessionAlreadyActive)
}

func (s *SessionManagerSuite) TestStartRejectsWhenAttemptsExhausted() {
	for i := 0; i < 5; i++ {
		err := s.ledger.Append(s.ctx, &model.Attempt{
			ID:            uuid.New(),
			ExamID:        s.exam.ID,
			StudentID:     s.key.StudentID,
			AttemptNumber: i + 1,
		})
		require.NoError(s.T(), err)
	}

	_, err := s.manager.Start(s.ctx, s.exam.ID, s.key.StudentID, "Dina", ClientMeta{})
	s.ErrorIs(err, ErrAttemptsExhausted)
}

func (s *SessionManagerSuite) TestAnswerLastWriteWins() {
	s.start()

	s.Require().NoError(s.manager.Answer(s.ctx, s.key, testQSingle, model.Answer{Value: "a"}))
	s.Require().NoError(s.manager.Answer(s.ctx, s.key, testQSingle, model.Answer{Value: "b"}))

	sess, err := s.manager.ActiveSession(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal("b", sess.Answers[testQSingle].Value)
}

func (s *SessionManagerSuite) TestAnswerRetriesTransientSaveFailure() {
	s.start()
	s.store.FailSaves = 2

	err := s.manager.Answer(s.ctx, s.key, testQShort, model.Answer{Value: "go"})
	s.NoError(err)

	sess, err := s.manager.ActiveSession(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal("go", sess.Answers[testQShort].Value)
}

func (s *SessionManagerSuite) TestNavigationClamps() {
	s.start()

	s.Require().NoError(s.manager.Navigate(s.ctx, s.key, 99))
	q, err := s.manager.CurrentQuestion(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(2, q.Index)
	s.Equal(3, q.Total)

	s.Require().NoError(s.manager.Navigate(s.ctx, s.key, 0))
	s.Require().NoError(s.manager.Previous(s.ctx, s.key))
	q, err = s.manager.CurrentQuestion(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(0, q.Index)
	s.Equal(testQSingle, q.ID)
}

// ─── Submission ─────────────────────────────────────────────────────

func (s *SessionManagerSuite) TestSubmitTooEarlyThenAccepted() {
	s.start()

	s.clk.Advance(5 * time.Second)
	_, err := s.manager.Submit(s.ctx, s.key)
	s.ErrorIs(err, ErrSubmittedTooEarly)

	// The rejection must not have touched the session.
	_, err = s.manager.ActiveSession(s.ctx, s.key)
	s.Require().NoError(err)

	s.clk.Advance(30 * time.Second)
	s.Require().NoError(s.manager.Answer(s.ctx, s.key, testQSingle, model.Answer{Value: "b"}))
	s.Require().NoError(s.manager.Answer(s.ctx, s.key, testQShort, model.Answer{Value: "GO"}))

	attempt, err := s.manager.Submit(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(model.EndReasonSubmitted, attempt.EndReason)
	s.Equal(1, attempt.AttemptNumber)
	s.Equal(7.0, attempt.RawScore)
	s.Equal(70.0, attempt.Percentage)
	s.True(attempt.Passed)

	_, err = s.manager.ActiveSession(s.ctx, s.key)
	s.ErrorIs(err, ErrSessionNotActive)

	count, err := s.ledger.Count(s.ctx, s.exam.ID, s.key.StudentID)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *SessionManagerSuite) TestTickAutoSubmitsAtDeadline() {
	s.start()

	s.clk.Advance(30*time.Minute + time.Second)
	s.Require().NoError(s.manager.Tick(s.ctx, s.key))

	attempts, err := s.ledger.List(s.ctx, s.exam.ID, s.key.StudentID)
	s.Require().NoError(err)
	s.Require().Len(attempts, 1)
	s.Equal(model.EndReasonAutoSubmitted, attempts[0].EndReason)
	s.Equal(0.0, attempts[0].Percentage)
	s.False(attempts[0].Passed)
}

func (s *SessionManagerSuite) TestLateSubmitRecordsTimedOut() {
	s.start()

	// The deadline lapsed but no tick has fired yet.
	s.clk.Advance(31 * time.Minute)
	attempt, err := s.manager.Submit(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(model.EndReasonTimedOut, attempt.EndReason)
}

func (s *SessionManagerSuite) TestTimeoutWarningFiresOnce() {
	s.start()

	s.clk.Advance(26 * time.Minute) // 4 minutes remain
	s.Require().NoError(s.manager.Tick(s.ctx, s.key))
	s.Require().NoError(s.manager.Tick(s.ctx, s.key))

	kinds := s.trailKinds()
	s.Equal(1, s.countKind(kinds, model.EventTimeoutWarning))
}

func (s *SessionManagerSuite) TestSubmitAfterAutoSubmitReturnsRecordedAttempt() {
	sess := s.start()

	s.clk.Advance(31 * time.Minute)
	s.Require().NoError(s.manager.Tick(s.ctx, s.key))

	attempt, err := s.manager.Submit(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(sess.ID, attempt.ID)

	count, err := s.ledger.Count(s.ctx, s.exam.ID, s.key.StudentID)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *SessionManagerSuite) TestConcurrentFinalizationWritesOneAttempt() {
	sess := s.start()
	s.clk.Advance(31 * time.Minute)

	var wg sync.WaitGroup
	results := make([]*model.Attempt, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var a *model.Attempt
			var err error
			if i%2 == 0 {
				a, err = s.manager.Submit(s.ctx, s.key)
			} else {
				a, err = s.manager.AutoSubmit(s.ctx, s.key)
			}
			if err == nil {
				results[i] = a
			}
		}(i)
	}
	wg.Wait()

	count, err := s.ledger.Count(s.ctx, s.exam.ID, s.key.StudentID)
	s.Require().NoError(err)
	s.Equal(1, count)

	for _, a := range results {
		if a != nil {
			s.Equal(sess.ID, a.ID)
		}
	}
}

func (s *SessionManagerSuite) TestAbandonWritesNoAttempt() {
	s.start()
	s.clk.Advance(time.Minute)

	s.Require().NoError(s.manager.Abandon(s.ctx, s.key))

	count, err := s.ledger.Count(s.ctx, s.exam.ID, s.key.StudentID)
	s.Require().NoError(err)
	s.Equal(0, count)

	// The trail still reached the sink, abandonment included.
	flushed := s.sink.Entries()
	s.Require().NotEmpty(flushed)
	s.Equal(model.EventSessionAbandoned, flushed[len(flushed)-1].Kind)

	// An abandoned session does not consume an attempt slot.
	_, err = s.manager.Start(s.ctx, s.exam.ID, s.key.StudentID, "Dina", ClientMeta{})
	s.NoError(err)
}

func (s *SessionManagerSuite) TestAbandonRetryAfterFlushFailureAuditsOnce() {
	s.start()
	s.clk.Advance(time.Minute)
	s.sink.FailFlushes = 1

	err := s.manager.Abandon(s.ctx, s.key)
	s.ErrorIs(err, ErrPersistenceFailure)

	// The session survived the failed flush, so the retry can finish.
	s.Require().NoError(s.manager.Abandon(s.ctx, s.key))

	abandoned := 0
	for _, e := range s.sink.Entries() {
		if e.Kind == model.EventSessionAbandoned {
			abandoned++
		}
	}
	s.Equal(1, abandoned)
}

// ─── Partial failure recovery ───────────────────────────────────────

func (s *SessionManagerSuite) TestFinalizeRetriesAfterLedgerFailure() {
	s.start()
	s.clk.Advance(time.Minute)
	s.ledger.FailAppends = 1

	_, err := s.manager.Submit(s.ctx, s.key)
	s.ErrorIs(err, ErrPersistenceFailure)

	// Failure left the stored session active, so the retry can finish.
	_, err = s.manager.ActiveSession(s.ctx, s.key)
	s.Require().NoError(err)

	attempt, err := s.manager.Submit(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(1, attempt.AttemptNumber)
}

func (s *SessionManagerSuite) TestFinalizeRetriesAfterSinkFailureWithoutRescoring() {
	sess := s.start()
	s.clk.Advance(time.Minute)
	s.sink.FailFlushes = 1

	_, err := s.manager.Submit(s.ctx, s.key)
	s.ErrorIs(err, ErrPersistenceFailure)

	// The attempt was already written before the flush failed.
	count, err := s.ledger.Count(s.ctx, s.exam.ID, s.key.StudentID)
	s.Require().NoError(err)
	s.Equal(1, count)

	// The retry resumes: same attempt, no duplicate.
	attempt, err := s.manager.Submit(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(sess.ID, attempt.ID)

	count, err = s.ledger.Count(s.ctx, s.exam.ID, s.key.StudentID)
	s.Require().NoError(err)
	s.Equal(1, count)
	s.NotEmpty(s.sink.Entries())
}

// ─── Recovery ───────────────────────────────────────────────────────

func (s *SessionManagerSuite) TestRemainingTimeSurvivesRestart() {
	s.start()
	s.clk.Advance(10 * time.Minute)

	remaining, err := s.manager.RemainingTime(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(20*time.Minute, remaining)

	// A fresh manager over the same store, as after a process restart,
	// derives the same remaining time from stored timestamps.
	bank := repository.NewMemoryQuestionBank(s.exam)
	restarted := NewSessionManager(s.cfg, s.store, s.ledger, bank, s.sink, s.clk, zerolog.Nop())
	defer restarted.Shutdown()

	remaining, err = restarted.RemainingTime(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(20*time.Minute, remaining)
}

// ─── Pause / resume ─────────────────────────────────────────────────

func (s *SessionManagerSuite) TestPauseDisabledByDefault() {
	s.start()
	s.ErrorIs(s.manager.Pause(s.ctx, s.key), ErrPauseDisabled)
}

func (s *SessionManagerSuite) TestResumeExtendsDeadlineByPausedTime() {
	s.cfg.AllowPause = true
	sess := s.start()
	originalDeadline := sess.Deadline

	s.clk.Advance(10 * time.Minute)
	s.Require().NoError(s.manager.Pause(s.ctx, s.key))

	// Submitting while paused is rejected.
	_, err := s.manager.Submit(s.ctx, s.key)
	s.ErrorIs(err, ErrSessionPaused)

	s.clk.Advance(5 * time.Minute)
	s.Require().NoError(s.manager.Resume(s.ctx, s.key))

	resumed, err := s.manager.ActiveSession(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(originalDeadline.Add(5*time.Minute), resumed.Deadline)
	s.Equal(5*time.Minute, resumed.PausedTotal)

	// Time spent excludes the paused stretch.
	s.clk.Advance(time.Minute)
	attempt, err := s.manager.Submit(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(11*60, attempt.TimeSpentSeconds)
}

// ─── Signals ────────────────────────────────────────────────────────

func (s *SessionManagerSuite) TestTabSwitchThresholdFlagsWithoutTerminating() {
	s.start()

	for i := 0; i < 5; i++ {
		s.manager.HandleSignal(s.ctx, s.key, anticheat.Signal{Kind: anticheat.SignalTabSwitch})
	}

	sess, err := s.manager.ActiveSession(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(model.SessionStatusInProgress, sess.Status)
	s.Equal(5, sess.TabSwitches)

	kinds := s.trailKinds()
	s.Equal(5, s.countKind(kinds, model.EventTabSwitchDetected))
	s.Equal(1, s.countKind(kinds, model.EventTabSwitchLimit))
}

func (s *SessionManagerSuite) TestUnloadSignalAudited() {
	s.start()

	s.manager.HandleSignal(s.ctx, s.key, anticheat.Signal{
		Kind:   anticheat.SignalUnloadIntent,
		Detail: map[string]any{"trigger": "beforeunload"},
	})

	kinds := s.trailKinds()
	s.Equal([]model.EventKind{model.EventSessionStarted, model.EventUnloadDetected}, kinds)

	// Navigation-away attempts are recorded, never enforced: the session
	// stays live and the tab-switch counter is untouched.
	sess, err := s.manager.ActiveSession(s.ctx, s.key)
	s.Require().NoError(err)
	s.Equal(model.SessionStatusInProgress, sess.Status)
	s.Equal(0, sess.TabSwitches)
}

func (s *SessionManagerSuite) TestUnknownSignalDropped() {
	s.start()

	s.manager.HandleSignal(s.ctx, s.key, anticheat.Signal{Kind: "telepathy"})

	kinds := s.trailKinds()
	s.Equal([]model.EventKind{model.EventSessionStarted}, kinds)
}

func (s *SessionManagerSuite) TestSignalAfterFinalizationIgnored() {
	s.start()
	s.clk.Advance(time.Minute)
	_, err := s.manager.Submit(s.ctx, s.key)
	s.Require().NoError(err)

	before := len(s.sink.Entries())
	s.manager.HandleSignal(s.ctx, s.key, anticheat.Signal{Kind: anticheat.SignalTabSwitch})
	s.Len(s.sink.Entries(), before)
}
