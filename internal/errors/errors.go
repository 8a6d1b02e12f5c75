// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrMissingField     = errors.New("missing field")
	ErrInvalidNumber    = errors.New("invalid number")
	ErrInvalidWindow    = errors.New("invalid time window")
	ErrTradeNotFound    = errors.New("trade not found")
	ErrPlaybookNotFound = errors.New("playbook not found")
	ErrPlaybookExists   = errors.New("playbook already exists")
	ErrAccountNotSet    = errors.New("account balance not set")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrInputValidation  = errors.New("input validation failed")
	ErrImageTooLarge    = errors.New("image cannot be compressed within budget")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// FieldError reports a trade input that cannot be normalized. Kind is one of
// ErrMissingField or ErrInvalidNumber, and errors.Is matches against it.
type FieldError struct {
	Field string
	Kind  error
	Value interface{}
}

func (e *FieldError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%v: %s (%v)", e.Kind, e.Field, e.Value)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// MissingField creates a FieldError for an absent required input.
func MissingField(field string) *FieldError {
	return &FieldError{Field: field, Kind: ErrMissingField}
}

// InvalidNumber creates a FieldError for a non-finite or out-of-range number.
func InvalidNumber(field string, value float64) *FieldError {
	return &FieldError{Field: field, Kind: ErrInvalidNumber, Value: value}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
