package engine

import (
	"errors"
	"fmt"

	"github.com/castlemilk/pfinance/analytics/internal/store"
)

// ErrorCode classifies engine failures for the transport layer.
type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeInternal        ErrorCode = "INTERNAL"
)

// Error is a structured error for engine failures.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func invalidArgument(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// storeError classifies a store failure, turning ErrNotFound into NOT_FOUND.
func storeError(op string, err error) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Code: CodeNotFound, Message: op, Cause: err}
	}
	return &Error{Code: CodeInternal, Message: "failed to " + op, Cause: err}
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr.Code
	}
	return CodeInternal
}
