package store

import (
	"fmt"
	"net/http"
)

// Error is a domain error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a copy of the error with a custom message. The copies
// still match the sentinel via errors.Is because they share the code.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg, Err: e.Err}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// Is matches any *Error carrying the same HTTP code, so wrapped copies made
// with WithMessage/WithCause still satisfy errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}
)

// Domain-specific sentinels used by services to distinguish not-found
// classes without string matching.
var (
	ErrBookNotFound     = ErrNotFound.WithMessage("Book not found")
	ErrSessionNotFound  = ErrNotFound.WithMessage("Reading session not found")
	ErrProgressNotFound = ErrNotFound.WithMessage("Progress entry not found")
	ErrStreakNotFound   = ErrNotFound.WithMessage("Streak not found")

	// ErrActiveSessionExists is returned when the partial unique index on
	// active sessions rejects a second active session for the same book.
	ErrActiveSessionExists = ErrAlreadyExists.WithMessage("Book already has an active reading session")
)
