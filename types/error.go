package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the agent core.
type ErrorCode string

const (
	// ErrValidation marks malformed input (missing modality, empty payload,
	// out-of-range confidence). Rejected at the tier boundary, never fatal.
	ErrValidation ErrorCode = "VALIDATION"

	// ErrNotFound marks a lookup miss. Returned as an explicit absent
	// result, not an abort.
	ErrNotFound ErrorCode = "NOT_FOUND"

	// ErrPlanningExhausted marks an iteration or time budget spent without
	// reaching the confidence threshold. Surfaced as a failed plan.
	ErrPlanningExhausted ErrorCode = "PLANNING_EXHAUSTED"

	// ErrTool marks an external adapter failure. Logged and absorbed as a
	// confidence penalty; never fails the enclosing plan on its own.
	ErrTool ErrorCode = "TOOL_ERROR"

	// ErrCapacityViolation marks a working-memory capacity breach. This is
	// unreachable given correct eviction logic and is treated as fatal.
	ErrCapacityViolation ErrorCode = "CAPACITY_VIOLATION"

	// ErrTimeout marks planning wall-time exhaustion.
	ErrTimeout ErrorCode = "TIMEOUT"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Fatal   bool      `json:"fatal,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Fatal: code == ErrCapacityViolation}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// NewValidationError creates a VALIDATION error.
func NewValidationError(message string) *Error {
	return NewError(ErrValidation, message)
}

// NewNotFoundError creates a NOT_FOUND error for the given kind and id.
func NewNotFoundError(kind, id string) *Error {
	return NewError(ErrNotFound, fmt.Sprintf("%s %q not found", kind, id))
}

// AsError extracts a *Error from err's chain, or nil.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	if e := AsError(err); e != nil {
		return e.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, or "".
func GetErrorCode(err error) ErrorCode {
	if e := AsError(err); e != nil {
		return e.Code
	}
	return ""
}

// IsFatal reports whether err is an internal invariant breach that must not
// be recovered from (currently only CAPACITY_VIOLATION).
func IsFatal(err error) bool {
	if e := AsError(err); e != nil {
		return e.Fatal
	}
	return false
}
