// Package shared holds cross-cutting helpers used by every domain module.
package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks across module boundaries.
var (
	// ErrValidation marks input rejected before any write was attempted.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced record is absent.
	ErrNotFound = errors.New("not found")
	// ErrRemote wraps an underlying storage or network failure.
	ErrRemote = errors.New("remote operation failed")
	// ErrInvalidTransition indicates a forbidden workflow state change.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// ValidationError carries the offending field so handlers can surface it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) succeed for typed validation errors.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a field-level validation error.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a typed not-found error.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// Remote wraps a storage failure, preserving the underlying message.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", ErrRemote, op, err)
}
