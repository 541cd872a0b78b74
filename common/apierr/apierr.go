// Package apierr defines the error taxonomy shared by the treasury services
// and its mapping onto HTTP problem responses.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindConflict
)

// Error is a typed service error. Services return it for failures the API
// layer must translate; plain wrapped errors map to internal.
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

func (e *Error) Unwrap() error { return e.Err }

// NotFound creates a not-found error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidInput creates a validation error.
func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a uniqueness/conflict error.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from an error chain, defaulting to internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound reports whether the error chain carries a not-found kind.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsInvalidInput reports whether the error chain carries an invalid-input kind.
func IsInvalidInput(err error) bool { return KindOf(err) == KindInvalidInput }

// IsConflict reports whether the error chain carries a conflict kind.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
