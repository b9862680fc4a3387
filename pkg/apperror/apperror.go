// Package apperror defines the error kinds shared by services and handlers.
// Handlers map a Kind to an HTTP status; storage details never leave the process.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "invalid_credentials"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindStorage      Kind = "storage_error"
)

// Error carries a machine-checkable kind and a message safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a sentinel-style error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// InvalidInput builds a validation error.
func InvalidInput(msg string) *Error { return New(KindInvalidInput, msg) }

// Storage wraps an underlying store failure with a generic public message.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: "Database error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf reports the kind of err, or KindStorage for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStorage
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindStorage {
		return ae.Message
	}
	return "Database error"
}
