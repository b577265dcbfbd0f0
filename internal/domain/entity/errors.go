package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrInvalidRange indicates that a numeric range is inverted or negative
	ErrInvalidRange = errors.New("invalid range")

	// ErrInvalidProfile indicates that a sampling profile failed validation
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrOutOfRange indicates that a sampled value lies outside its configured range
	ErrOutOfRange = errors.New("value out of range")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field string
	Err   error
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %v", e.Field, e.Err)
}

// Unwrap exposes the underlying sentinel so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
