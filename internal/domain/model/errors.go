package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared by every layer. Callers match them with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidState         = errors.New("invalid state")
	ErrPredictionNotAllowed = errors.New("prediction not allowed")
	ErrDuplicate            = errors.New("already exists")
	ErrValidation           = errors.New("validation failed")
)

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// Unwrap lets errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StateError reports an operation that the entity's current status forbids.
type StateError struct {
	Op     string
	Entity string
	Status string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %q", e.Op, e.Entity, e.Status)
}

// Unwrap lets errors.Is(err, ErrInvalidState) succeed.
func (e *StateError) Unwrap() error { return ErrInvalidState }

// NotFound wraps ErrNotFound with the entity kind and identifier.
func NotFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

// NotAllowed wraps ErrPredictionNotAllowed with a reason.
func NotAllowed(reason string) error {
	return fmt.Errorf("%w: %s", ErrPredictionNotAllowed, reason)
}
