package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline errors
const (
	// ErrCodeSourceUnreadable indicates the source audio cannot be opened or decoded.
	ErrCodeSourceUnreadable ErrorCode = "SOURCE_UNREADABLE"
	// ErrCodeIOFailure indicates a scratch or output filesystem error.
	ErrCodeIOFailure ErrorCode = "IO_FAILURE"
	// ErrCodeRecognitionFailure indicates the recognition call errored or timed out.
	ErrCodeRecognitionFailure ErrorCode = "RECOGNITION_FAILURE"
	// ErrCodeOutOfOrderInput indicates the recognizer returned non-monotonic timestamps.
	ErrCodeOutOfOrderInput ErrorCode = "OUT_OF_ORDER_INPUT"
	// ErrCodeOffsetMismatch indicates segment offsets disagree with measured durations.
	ErrCodeOffsetMismatch ErrorCode = "OFFSET_MISMATCH"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a ledger database error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeTimeout indicates an operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeRecognitionFailure: true,
	ErrCodeTimeout:            true,
	ErrCodeDatabaseError:      true,
	ErrCodeOutOfOrderInput:    false,
	ErrCodeOffsetMismatch:     false,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
