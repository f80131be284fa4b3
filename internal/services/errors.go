package services

import (
	"errors"
	"fmt"

	"github.com/AnshRaj112/econex-backend/internal/models"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
)

// ValidationError is a malformed or missing input field.
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

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StateError is a transition attempted from the wrong status. The request is
// left unmodified.
type StateError struct {
	Expected models.RequestStatus
	Actual   models.RequestStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("request is %s, expected %s", e.Actual, e.Expected)
}

func (e *StateError) Is(target error) bool { return target == ErrInvalidState }

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}
