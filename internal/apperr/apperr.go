// Package apperr defines the error kinds surfaced by the domain services.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindForbidden        Kind = "FORBIDDEN"
	KindValidationFailed Kind = "VALIDATION_FAILED"
	KindInternal         Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Unauthorized(msg string) error     { return New(KindUnauthorized, msg) }
func NotFound(msg string) error         { return New(KindNotFound, msg) }
func Conflict(msg string) error         { return New(KindConflict, msg) }
func Forbidden(msg string) error        { return New(KindForbidden, msg) }
func ValidationFailed(msg string) error { return New(KindValidationFailed, msg) }

// Internal wraps an unexpected fault; the cause is kept for logging only.
func Internal(msg string, cause error) error {
	return Wrap(KindInternal, msg, cause)
}

// KindOf reports the kind of the first *Error in err's chain.
// Errors outside the taxonomy are Internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
