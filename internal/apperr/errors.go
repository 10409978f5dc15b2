// Package apperr classifies pipeline failures into machine-readable kinds.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of an Error.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindSourceAccess  Kind = "source_access"
	KindParse         Kind = "parse"
	KindStateStore    Kind = "state_store"
	KindInternal      Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a classified error.
func New(kind Kind, op, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// Configuration reports missing or invalid configuration.
func Configuration(op, message string) *Error {
	return New(KindConfiguration, op, message, nil)
}

// SourceAccess wraps a listing or download failure.
func SourceAccess(op string, cause error) *Error {
	return New(KindSourceAccess, op, "document source unavailable", cause)
}

// Parse wraps an unreadable document.
func Parse(op string, cause error) *Error {
	return New(KindParse, op, "document could not be parsed", cause)
}

// StateStore wraps a state store failure.
func StateStore(op string, cause error) *Error {
	return New(KindStateStore, op, "state store failure", cause)
}

// KindOf returns the kind of the first classified error in err's chain,
// or KindInternal when none is found.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
