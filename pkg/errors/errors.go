// Package errors defines the error taxonomy returned while bootstrapping telemetry.
package errors

import (
	"errors"
	"fmt"
)

// Error types
const (
	// ErrMissingField is returned when a required configuration value is absent or empty
	ErrMissingField = "missing_field"

	// ErrInvalidPort is returned when a port is outside 1-65535
	ErrInvalidPort = "invalid_port"

	// ErrInvalidArgument is returned when any other configuration value is malformed
	ErrInvalidArgument = "invalid_argument"

	// ErrUpstreamConstruction is returned when an exporter, reporter or tracer cannot be built
	ErrUpstreamConstruction = "upstream_construction"

	// ErrAlreadyRegistered is returned when a registry key is published twice
	ErrAlreadyRegistered = "already_registered"
)

// Error represents an error in the application
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewMissingFieldError creates an error for a required field that was not set.
func NewMissingFieldError(field string) *Error {
	return NewError(ErrMissingField, fmt.Sprintf("%s is required", field), nil)
}

// NewInvalidPortError creates an error for a port outside the valid range.
func NewInvalidPortError(field string, port int) *Error {
	return NewError(ErrInvalidPort, fmt.Sprintf("%s %d is outside 1-65535", field, port), nil)
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string, cause error) *Error {
	return NewError(ErrInvalidArgument, message, cause)
}

// NewUpstreamConstructionError wraps a collaborator failure. The cause is kept
// unchanged so callers can still match on it.
func NewUpstreamConstructionError(message string, cause error) *Error {
	return NewError(ErrUpstreamConstruction, message, cause)
}

// NewAlreadyRegisteredError creates an error for a duplicate registry key.
func NewAlreadyRegisteredError(key string) *Error {
	return NewError(ErrAlreadyRegistered, fmt.Sprintf("key %q is already registered", key), nil)
}

// IsMissingField checks if the error is a missing field error
func IsMissingField(err error) bool {
	return hasType(err, ErrMissingField)
}

// IsInvalidPort checks if the error is an invalid port error
func IsInvalidPort(err error) bool {
	return hasType(err, ErrInvalidPort)
}

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return hasType(err, ErrInvalidArgument)
}

// IsUpstreamConstruction checks if the error is an upstream construction error
func IsUpstreamConstruction(err error) bool {
	return hasType(err, ErrUpstreamConstruction)
}

// IsAlreadyRegistered checks if the error is an already registered error
func IsAlreadyRegistered(err error) bool {
	return hasType(err, ErrAlreadyRegistered)
}

// hasType reports whether any *Error in err's chain has the given type.
func hasType(err error, errorType string) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errorType {
			return true
		}
		err = e.Cause
	}
	return false
}
