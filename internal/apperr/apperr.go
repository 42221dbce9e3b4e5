// Package apperr defines the error conditions surfaced to callers of the
// learning services, independent of the transport that reports them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned for ids the learner does not own or that do
	// not exist. The two cases are indistinguishable to the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed caller parameters. It is
	// raised before any external call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTemporarilyUnavailable is returned when the content service is
	// out of quota or transiently failing.
	ErrTemporarilyUnavailable = errors.New("content service temporarily unavailable")

	// ErrServiceMisconfigured is returned when the content service rejects
	// our credentials or configuration.
	ErrServiceMisconfigured = errors.New("content service misconfigured")

	// ErrConflict is returned when an operation's preconditions on learner
	// state are not met.
	ErrConflict = errors.New("conflict")
)

// Invalid wraps ErrInvalidInput with a formatted detail message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the kind of entity that was missing.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Error pairs an error with the transport status and a stable code.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps err onto a transport status and code.
func Classify(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return &Error{Status: http.StatusNotFound, Code: "not_found", Err: err}
	case errors.Is(err, ErrInvalidInput):
		return &Error{Status: http.StatusBadRequest, Code: "invalid_input", Err: err}
	case errors.Is(err, ErrConflict):
		return &Error{Status: http.StatusConflict, Code: "conflict", Err: err}
	case errors.Is(err, ErrTemporarilyUnavailable):
		return &Error{Status: http.StatusServiceUnavailable, Code: "temporarily_unavailable", Err: ErrTemporarilyUnavailable}
	case errors.Is(err, ErrServiceMisconfigured):
		return &Error{Status: http.StatusInternalServerError, Code: "service_misconfigured", Err: ErrServiceMisconfigured}
	default:
		return &Error{Status: http.StatusInternalServerError, Code: "internal", Err: errors.New("internal error")}
	}
}
