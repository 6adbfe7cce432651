package protocol

// ErrorCode classifies every failure that can cross the daemon boundary.
// Extension-side error handling branches on these codes, never on message
// strings, so each distinguishable failure situation needs its own code.
type ErrorCode string

// Provider-level codes, produced by adapter error translation.
const (
	CodeConnectionFailed     ErrorCode = "CONNECTION_FAILED"
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	CodeModelNotFound        ErrorCode = "MODEL_NOT_FOUND"
	CodeRateLimited          ErrorCode = "RATE_LIMITED"
	CodeTimeout              ErrorCode = "TIMEOUT"
	CodeCancelled            ErrorCode = "CANCELLED"
	CodeInvalidResponse      ErrorCode = "INVALID_RESPONSE"
	CodeUnknown              ErrorCode = "UNKNOWN"
)

// Router-level codes.
const (
	CodeModelNotSelected  ErrorCode = "MODEL_NOT_SELECTED"
	CodeUnknownMessage    ErrorCode = "UNKNOWN_MESSAGE"
	CodeInvalidPayload    ErrorCode = "INVALID_PAYLOAD"
	CodeTransformNotFound ErrorCode = "TRANSFORM_NOT_FOUND"
	CodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

// Transport-level codes, produced by the client facade.
const (
	CodeNoRuntime      ErrorCode = "NO_RUNTIME"
	CodeMessagingError ErrorCode = "MESSAGING_ERROR"
	CodeNoResponse     ErrorCode = "NO_RESPONSE"
)

// Cipher-level codes.
const (
	CodeEncryptionError ErrorCode = "ENCRYPTION_ERROR"
	CodeDecryptionError ErrorCode = "DECRYPTION_ERROR"
)
