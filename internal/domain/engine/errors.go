package engine

import (
	"errors"
	"strings"
)

// ErrorCode standardizes failure semantics across the matchmaking engine.
type ErrorCode string

const (
	// CodeParse marks a malformed collaborator payload. Recovered locally
	// with a canned message and never retried automatically.
	CodeParse ErrorCode = "parse"
	// CodeState marks an illegal status or match transition.
	CodeState ErrorCode = "state"
	// CodeQuota marks an exhausted proposal window.
	CodeQuota ErrorCode = "quota"
	// CodeBackend marks both similarity backends failing; a single primary
	// failure is absorbed by the fallback and never carries this code.
	CodeBackend ErrorCode = "backend"
	// CodeDelivery marks a failed best-effort push. Logged, non-fatal.
	CodeDelivery ErrorCode = "delivery"

	CodeValidation ErrorCode = "validation"
	CodeNotFound   ErrorCode = "not_found"
	CodeConflict   ErrorCode = "conflict"
	CodeRetryable  ErrorCode = "retryable"
	CodeInternal   ErrorCode = "internal"
)

// Error carries a code, the operation that failed, and an optional cause.
// Services construct these; the HTTP facade maps codes to statuses.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

// Error renders as "[code] op: message", dropping whichever parts are empty.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, 2)
	if op := strings.TrimSpace(e.Op); op != "" {
		parts = append(parts, op)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	tag := "[" + string(e.Code) + "]"
	if len(parts) == 0 {
		return tag
	}
	return tag + " " + strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an engine error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with engine error semantics. Wrapping nil
// stays nil so call sites can wrap unconditionally.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code && code != ""
}

// CodeOf extracts the engine error code, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr.Code
	}
	return ""
}
