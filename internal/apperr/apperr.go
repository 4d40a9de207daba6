// Package apperr defines the error kinds surfaced to the HTTP and tool boundaries.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for translation into a user-facing response.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidArgument marks bad pagination, filter or body values.
	KindInvalidArgument
	// KindNotFound marks a lookup miss.
	KindNotFound
	// KindUpstreamUnavailable marks a failed document store or provider call.
	KindUpstreamUnavailable
	// KindConflict marks a write that clashes with existing state.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindUpstreamUnavailable:
		return "UPSTREAM_UNAVAILABLE"
	case KindConflict:
		return "CONFLICT"
	default:
		return "UNKNOWN"
	}
}

// Error is a classified error with an optional cause.
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

// New creates an Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// InvalidArgument creates a KindInvalidArgument error from a format string.
func InvalidArgument(format string, args ...any) *Error {
	return New(KindInvalidArgument, fmt.Sprintf(format, args...), nil)
}

// NotFound creates a KindNotFound error from a format string.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...), nil)
}

// Conflict creates a KindConflict error from a format string.
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...), nil)
}

// Upstream wraps cause as KindUpstreamUnavailable. A nil cause yields nil.
func Upstream(message string, cause error) error {
	if cause == nil {
		return nil
	}
	return New(KindUpstreamUnavailable, message, cause)
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
