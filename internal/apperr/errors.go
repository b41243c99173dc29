// Package apperr defines the error taxonomy shared by the store, service and
// HTTP layers. Callers classify errors with errors.Is against the sentinels.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrStorage      = errors.New("storage failure")
)

// Conflict refinements. Each wraps ErrConflict so generic handling still works.
var (
	ErrDuplicateUsername = fmt.Errorf("username already exists: %w", ErrConflict)
	ErrDuplicateEmail    = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrAlreadyShared     = fmt.Errorf("already shared: %w", ErrConflict)
)

// ValidationError reports a single invalid or missing input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for a *ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Storage wraps err so that it classifies as ErrStorage while keeping the cause.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStorage, err))
}
