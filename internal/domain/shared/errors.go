// Package shared contains common domain types, errors and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound = errors.New("entity not found")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Dataset errors
	ErrDataLoad = errors.New("dataset load error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "dataset", "search", "leaderboard"
	Op      string // Operation that failed, e.g., "Load", "Compare"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EXPLORER ERROR TAXONOMY
// ══════════════════════════════════════════════════════════════════════════════

// NewDataLoadError reports a missing, unreadable or structurally broken source.
// Fatal at startup.
func NewDataLoadError(op, message string, err error) *DomainError {
	return WrapError("dataset", op, ErrDataLoad, message, err)
}

// NewNotFoundError reports a named lookup that matched nothing.
func NewNotFoundError(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrNotFound, message)
}

// ValidationError reports a value that failed validation, optionally pinned to
// a source row and column.
type ValidationError struct {
	Row    int    // 1-based line in the source file, 0 when not row-bound
	Column string // column or parameter name
	Value  string // offending raw value
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("validation: row %d, column %q: %s (value %q)", e.Row, e.Column, e.Reason, e.Value)
	}
	if e.Column != "" {
		return fmt.Sprintf("validation: %s: %s (value %q)", e.Column, e.Reason, e.Value)
	}
	return "validation: " + e.Reason
}

// Is reports ValidationError as ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a validation error not bound to a row.
func NewValidationError(column, value, reason string) *ValidationError {
	return &ValidationError{Column: column, Value: value, Reason: reason}
}

// Search and leaderboard errors
var (
	ErrStudentNotFound = NewNotFoundError("search", "Find", "student not found")
	ErrEmptyTable      = NewNotFoundError("leaderboard", "Pick", "table is empty")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsDataLoad checks if the error came from loading the dataset.
func IsDataLoad(err error) bool {
	return errors.Is(err, ErrDataLoad)
}
