package errors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories an operation can report.
type Kind string

const (
	KindUnknown      Kind = "UNKNOWN"
	KindParse        Kind = "PARSE"
	KindSafety       Kind = "SAFETY_VIOLATION"
	KindNotFound     Kind = "NOT_FOUND"
	KindAmbiguous    Kind = "AMBIGUOUS_MATCH"
	KindExists       Kind = "ALREADY_EXISTS"
	KindHunkRejected Kind = "HUNK_REJECTED"
	KindExternalTool Kind = "EXTERNAL_TOOL"
	KindIO           Kind = "IO"
	KindConfig       Kind = "CONFIG"
)

// Error is a categorized failure for a single item or request.
type Error struct {
	Kind    Kind
	Path    string
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error. Returns nil for a nil err.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Wrapped: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// WithPath records the file the error refers to.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of err, or KindUnknown if it is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
