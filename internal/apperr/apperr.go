// Package apperr defines the error kinds every funnel operation reports.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of its message.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindPreconditionFailed
	KindRateLimited
	KindExpired
	KindValidationFailed
	KindUpstreamFailure
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindPreconditionFailed:
		return "PRECONDITION_FAILED"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindExpired:
		return "EXPIRED"
	case KindValidationFailed:
		return "VALIDATION_FAILED"
	case KindUpstreamFailure:
		return "UPSTREAM_FAILURE"
	case KindConflict:
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}

// Error carries a kind, a client-safe message and an optional cause.
// The cause is for logs only and is never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and message, so a wrapped
// copy of a sentinel still satisfies errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithCause returns a copy of sentinel that records err as its cause.
func WithCause(sentinel *Error, err error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: err}
}

func NotFound(message string) *Error           { return New(KindNotFound, message) }
func PreconditionFailed(message string) *Error { return New(KindPreconditionFailed, message) }
func RateLimited(message string) *Error        { return New(KindRateLimited, message) }
func ValidationFailed(message string) *Error   { return New(KindValidationFailed, message) }
func Conflict(message string) *Error           { return New(KindConflict, message) }

// Upstream wraps a collaborator failure behind a generic message.
func Upstream(message string, err error) *Error {
	return Wrap(KindUpstreamFailure, message, err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the message that is safe to show a client.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
