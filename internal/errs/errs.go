// Package errs holds the sentinel and typed errors shared across the routine builder.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that a requested product or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptySelection is returned when a routine is requested with nothing selected.
	ErrEmptySelection = errors.New("no products selected")

	// ErrEmptyResponse indicates the worker answered without any usable content.
	ErrEmptyResponse = errors.New("empty response from worker")

	// ErrWorker matches every APIError.
	ErrWorker = errors.New("worker error")
)

// NotFoundError represents a lookup miss for a resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError is a non-2xx answer (or transport failure) from the worker.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("worker error from %s (status %d): %s", e.Endpoint, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("worker error from %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("worker error from %s", e.Endpoint)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	return target == ErrWorker
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
