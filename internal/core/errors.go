package core

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionNotFound is wrapped by lookups that match no dataset version.
	ErrVersionNotFound = errors.New("dataset version not found")

	// ErrMappingNotFound is wrapped when a version has no stored mapping plan.
	ErrMappingNotFound = errors.New("mapping plan not found")

	// ErrVersionPublished is wrapped when deletion targets a public version.
	ErrVersionPublished = errors.New("dataset version is published")

	// ErrVersionReferenced is wrapped when deletion would orphan a successor.
	ErrVersionReferenced = errors.New("dataset version is still referenced")
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
	Err     error
}

func (e *NotFoundError) Error() string { return e.Message }
func (e *NotFoundError) Unwrap() error { return e.Err }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates the request clashes with the current state.
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError wrapping sentinel.
func ErrNotFound(sentinel error, format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError wrapping sentinel.
func ErrConflict(sentinel error, format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...), Err: sentinel}
}
