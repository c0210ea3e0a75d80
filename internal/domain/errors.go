package domain

import (
	"errors"
	"fmt"
)

// ErrKind classifies failures so callers can decide between abort, degrade,
// skip, and retry.
type ErrKind string

const (
	ErrKindConfiguration     ErrKind = "configuration"
	ErrKindSourceUnavailable ErrKind = "source_unavailable"
	ErrKindNotification      ErrKind = "notification"
	ErrKindPersistence       ErrKind = "persistence"
)

// Error pairs a kind with the underlying cause.
type Error struct {
	Kind ErrKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind.
func NewError(kind ErrKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the kind from err, or empty when err is not kinded.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
