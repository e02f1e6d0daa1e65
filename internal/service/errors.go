package service

import "errors"

// Validation errors returned to the caller for user-facing messaging.
// Never retried automatically.
var (
	ErrExamNotFound         = errors.New("exam does not exist")
	ErrAttemptsExhausted    = errors.New("maximum attempts for this exam have been used")
	ErrSessionAlreadyActive = errors.New("an exam session is already in progress")
	ErrSessionNotActive     = errors.New("no active exam session")
	ErrSessionPaused        = errors.New("exam session is paused")
	ErrSubmittedTooEarly    = errors.New("submitted before the minimum elapsed time")
	ErrPauseDisabled        = errors.New("pausing is not enabled for this deployment")
)

// ErrPersistenceFailure wraps store failures that the caller may retry.
// A finalization that fails with it leaves the session intact so a later
// submit or auto-submit can complete.
var ErrPersistenceFailure = errors.New("persistence failure")
