// internal/apperrors/errors.go
// Typed error taxonomy shared by every component. A single comparable
// Code per category keeps the HTTP mapping in one place.

package apperrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error category.
type Code string

const (
	Validation      Code = "validation"
	NotFound        Code = "not_found"
	Conflict        Code = "conflict"
	Stale           Code = "stale"
	Unauthenticated Code = "unauthenticated"
	Upstream        Code = "upstream"
	Internal        Code = "internal"
	Fatal           Code = "fatal"
)

// Error wraps a Code, a human message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...interface{}) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...interface{}) *Error {
	return New(Conflict, fmt.Sprintf(format, args...))
}

// HTTPStatus maps a Code onto the HTTP status the API layer should emit.
func HTTPStatus(code Code) int {
	switch code {
	case Validation:
		return 400
	case Unauthenticated:
		return 401
	case NotFound:
		return 404
	case Conflict, Stale:
		return 409
	case Upstream:
		return 502
	default:
		return 500
	}
}
