package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures along the search pipeline.
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource (session, geocode match) was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates bad caller input
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypePermission indicates the device location was withheld
	ErrorTypePermission ErrorType = "PERMISSION"

	// ErrorTypeTransport indicates a network failure or non-2xx upstream response
	ErrorTypeTransport ErrorType = "TRANSPORT"

	// ErrorTypeParse indicates an upstream payload that did not match its schema
	ErrorTypeParse ErrorType = "PARSE"

	// ErrorTypeExternal indicates an upstream dependency failed as a whole
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewPermissionError creates a new location permission error
func NewPermissionError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypePermission, Message: message, Err: err}
}

// NewTransportError creates a new transport error
func NewTransportError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeTransport, Message: message, Err: err}
}

// NewParseError creates a new parse error
func NewParseError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeParse, Message: message, Err: err}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeExternal, Message: message, Err: err}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of type t.
func IsType(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// IsRecoverable reports whether a strategy may swallow err and move on.
// Transport and parse failures are recoverable; everything else is not.
func IsRecoverable(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeTransport, ErrorTypeParse:
		return true
	}
	return false
}
