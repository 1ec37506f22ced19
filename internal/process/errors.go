package process

import (
	"errors"
	"fmt"
)

// StreamError is returned by Supervisor operations. Message is the
// user-facing text that also ends up in the status record.
type StreamError struct {
	Code    string
	Message string
	Cause   error
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// Error codes. RUNTIME_ERROR is never returned by Start or Stop: encoder
// error lines and non-zero exits surface only in the status record. It names
// that class of failure for API clients.
const (
	ErrCodeConfigError  = "CONFIG_ERROR"
	ErrCodeSpawnError   = "SPAWN_ERROR"
	ErrCodeRuntimeError = "RUNTIME_ERROR"
	ErrCodeConflict     = "CONFLICT"
)

// NewStreamError creates a new stream error
func NewStreamError(code, message string, cause error) *StreamError {
	return &StreamError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode returns the StreamError code in err's chain, or "" if none.
func ErrorCode(err error) string {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// UserMessage returns the user-facing message for err.
func UserMessage(err error) string {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
