package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrAttemptsExhausted    ErrCode = "ATTEMPTS_EXHAUSTED"
	ErrSessionAlreadyActive ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionNotActive     ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionPaused        ErrCode = "SESSION_PAUSED"
	ErrSubmittedTooEarly    ErrCode = "SUBMITTED_TOO_EARLY"
	ErrPauseDisabled        ErrCode = "PAUSE_DISABLED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrPersistenceFailure ErrCode = "PERSISTENCE_FAILURE"
	ErrInternal           ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "The submitted data is invalid."
	case ErrInvalidID:
		return "The identifier format is invalid."
	case ErrInvalidPayload:
		return "The request payload could not be parsed."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The request conflicts with the current state."

	// ─── Session lifecycle ─────────────────────────────────────────────
	case ErrAttemptsExhausted:
		return "No attempts remain for this exam."
	case ErrSessionAlreadyActive:
		return "An exam session is already in progress."
	case ErrSessionNotActive:
		return "There is no active exam session."
	case ErrSessionPaused:
		return "The exam session is paused."
	case ErrSubmittedTooEarly:
		return "The exam cannot be submitted this quickly after starting."
	case ErrPauseDisabled:
		return "Pausing is not enabled for this exam."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrPersistenceFailure:
		return "The operation could not be recorded. Please try again."
	case ErrInternal:
		return "An internal server error occurred."
	}

	return "An unknown error occurred."
}
