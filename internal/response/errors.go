package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrAccessDenied ErrCode = "ACCESS_DENIED"
	ErrRoleRequired ErrCode = "ROLE_REQUIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam lifecycle ────────────────────────────────────────────────
	ErrExamNotAvailable  ErrCode = "EXAM_NOT_AVAILABLE"
	ErrExamNotDraft      ErrCode = "EXAM_NOT_DRAFT"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrInvalidAccessCode ErrCode = "INVALID_ACCESS_CODE"
	ErrInvitationInvalid ErrCode = "INVITATION_INVALID"
	ErrNotEnrolled       ErrCode = "NOT_ENROLLED"

	// ─── Session state machine ─────────────────────────────────────────
	ErrSessionAlreadyStarted   ErrCode = "SESSION_ALREADY_STARTED"
	ErrSessionAlreadyCompleted ErrCode = "SESSION_ALREADY_COMPLETED"
	ErrSessionNotStarted       ErrCode = "SESSION_NOT_STARTED"
	ErrExamWindowClosed        ErrCode = "EXAM_WINDOW_CLOSED"
	ErrExamNotYetOpen          ErrCode = "EXAM_NOT_YET_OPEN"

	// ─── Grading ───────────────────────────────────────────────────────
	ErrMarksOutOfRange     ErrCode = "MARKS_OUT_OF_RANGE"
	ErrNotManuallyGradable ErrCode = "NOT_MANUALLY_GRADABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "UNKNOWN_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrAccessDenied:
		return "You do not have permission to access this resource."
	case ErrRoleRequired:
		return "This resource is restricted to another role."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam lifecycle ────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrExamNotDraft:
		return "This exam is no longer a draft."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrInvalidAccessCode:
		return "The exam access code is invalid."
	case ErrInvitationInvalid:
		return "The invitation code is invalid or already redeemed."
	case ErrNotEnrolled:
		return "You are not enrolled in this exam."

	// ─── Session state machine ─────────────────────────────────────────
	case ErrSessionAlreadyStarted:
		return "Your attempt has already been started."
	case ErrSessionAlreadyCompleted:
		return "Your attempt has already been completed."
	case ErrSessionNotStarted:
		return "Your attempt has not been started yet."
	case ErrExamWindowClosed:
		return "The exam window has closed."
	case ErrExamNotYetOpen:
		return "The exam has not opened yet."

	// ─── Grading ───────────────────────────────────────────────────────
	case ErrMarksOutOfRange:
		return "Marks must be between zero and the question's maximum."
	case ErrNotManuallyGradable:
		return "Multiple-choice answers are graded automatically."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
