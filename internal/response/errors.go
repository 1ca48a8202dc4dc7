package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Admission ─────────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"
	ErrSessionActive ErrCode = "SESSION_ALREADY_ACTIVE"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Interview-specific ────────────────────────────────────────────
	ErrCapabilityDenied ErrCode = "CAPABILITY_DENIED"
	ErrSessionSealed    ErrCode = "SESSION_SEALED"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"
	ErrReportNotReady   ErrCode = "REPORT_NOT_READY"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Admission ─────────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An interview invite token is required."
	case ErrTokenInvalid:
		return "The interview invite token is not valid."
	case ErrTokenExpired:
		return "The interview invite token has expired."
	case ErrSessionActive:
		return "An interview session is already in progress for this candidate."

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

	// ─── Interview-specific ────────────────────────────────────────────
	case ErrCapabilityDenied:
		return "A required device permission was denied. Camera, microphone and screen share are all mandatory."
	case ErrSessionSealed:
		return "This interview session has already ended."
	case ErrNoQuestions:
		return "No questions are available for this interview."
	case ErrReportNotReady:
		return "The interview report is not available yet."

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
