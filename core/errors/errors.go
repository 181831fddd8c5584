// Package errors provides standardized error types and helpers for the quranchat codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrFetch indicates a corpus or commentary resource could not be retrieved
	ErrFetch = errors.New("fetch failed")
	// ErrMalformed indicates corpus data with the wrong shape
	ErrMalformed = errors.New("malformed data")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "session", "commentary", "manifest")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// FetchError reports a corpus resource that could not be retrieved.
// Status is the transport status code when one was received, 0 otherwise.
type FetchError struct {
	Resource string // "chapter", "commentary", "manifest"
	ID       string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("failed to fetch %s", e.Resource)
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is(err, ErrFetch) match regardless of the wrapped cause.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MalformedDataError represents corpus data that does not match its schema.
type MalformedDataError struct {
	Resource string // e.g. "manifest", "chapter 2"
	Message  string
	Err      error
}

func (e *MalformedDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s: %s: %v", e.Resource, e.Message, e.Err)
	}
	return fmt.Sprintf("malformed %s: %s", e.Resource, e.Message)
}

func (e *MalformedDataError) Is(target error) bool {
	return target == ErrMalformed
}

func (e *MalformedDataError) Unwrap() error {
	return e.Err
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewFetch creates a FetchError
func NewFetch(resource, id string, status int, err error) *FetchError {
	return &FetchError{
		Resource: resource,
		ID:       id,
		Status:   status,
		Err:      err,
	}
}

// NewMalformed creates a MalformedDataError
func NewMalformed(resource, message string) *MalformedDataError {
	return &MalformedDataError{
		Resource: resource,
		Message:  message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
