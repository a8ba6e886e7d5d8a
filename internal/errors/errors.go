// Package errors consolidates error definitions for the aimon application.
//
// This package provides:
// - Sentinel errors for all error conditions
// - Error category checking functions matching the recovery policy
// - Error wrapping utilities
// - A ValidationErrors collector used by configuration validation
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Connection errors - handshake phase, recovered by bounded retry,
	// fatal once retries are exhausted.
	ErrConnectFailed    = errors.New("connection failed")
	ErrRetriesExhausted = errors.New("connection retries exhausted")

	// Fetch errors - steady-state polling, never fatal, the next scheduled
	// iteration is the retry.
	ErrHTTPStatus       = errors.New("unexpected HTTP status")
	ErrTimeout          = errors.New("timeout")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrSNMPError        = errors.New("SNMP error")

	// Persistence errors - logged, next flush retries.
	ErrPersist = errors.New("persist failed")

	// Configuration errors - fatal at construction, before any network
	// activity starts.
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidInterval = errors.New("invalid interval")

	// Archive errors
	ErrArchiveClosed = errors.New("archive is closed")
	ErrNoArchive     = errors.New("no archive files for range")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsConnectError returns true if err belongs to the handshake taxonomy.
func IsConnectError(err error) bool {
	return errors.Is(err, ErrConnectFailed) ||
		errors.Is(err, ErrRetriesExhausted)
}

// IsFetchError returns true if err is a recoverable steady-state poll error.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrHTTPStatus) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrSNMPError)
}

// IsPersistError returns true if err is a flush failure.
func IsPersistError(err error) bool {
	return errors.Is(err, ErrPersist)
}

// IsConfigError returns true if err is a configuration validation error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidInterval)
}

// IsFatal returns true if err must terminate the process.
// Only exhausted handshake retries and invalid configuration qualify.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRetriesExhausted) || IsConfigError(err)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

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

// ============================================================================
// Error constructors with context
// ============================================================================

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
