// Package models defines the error taxonomy and API data shapes shared by
// the record core, the storage backends and the HTTP layer.
package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// CodeNotFound is returned when a lookup misses.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeConflict is returned on a revision mismatch during a write or delete.
	CodeConflict ErrorCode = "CONFLICT"
	// CodeInvalidState is returned when an operation is illegal for the
	// record's current lifecycle state.
	CodeInvalidState ErrorCode = "INVALID_STATE"
	// CodeValidationFailed is returned when normalization rejects a value or
	// a required key cannot be satisfied.
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// CodeReadOnly is returned when a mutation is attempted on the anonymous
	// identity.
	CodeReadOnly ErrorCode = "READ_ONLY"
	// CodeForbidden is returned when an authorization predicate is false.
	CodeForbidden ErrorCode = "FORBIDDEN"
	// CodeUnauthorized is returned when credentials are missing or invalid.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// CodeStorageError is returned when a storage backend operation fails.
	CodeStorageError ErrorCode = "STORAGE_ERROR"
	// CodeInternal is returned when an unexpected server error occurs.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
}

// APIError is a concrete error type with status code and error code.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{statusCode: statusCode, code: code, message: message}
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// Predefined error constructors for common cases

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// Conflict creates a 409 Conflict error for a revision mismatch.
func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, CodeConflict, message)
}

// InvalidState creates a 409 error for an operation that is illegal in the
// record's current lifecycle state.
func InvalidState(op, state string) *APIError {
	return NewAPIError(http.StatusConflict, CodeInvalidState, fmt.Sprintf("cannot %s record in state %s", op, state))
}

// Validation creates a 400 Bad Request error.
func Validation(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, CodeValidationFailed, message)
}

// ReadOnly creates a 403 error for mutations of the anonymous identity.
func ReadOnly(message string) *APIError {
	return NewAPIError(http.StatusForbidden, CodeReadOnly, message)
}

// Forbidden creates a 403 Forbidden error.
func Forbidden(message string) *APIError {
	return NewAPIError(http.StatusForbidden, CodeForbidden, message)
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized() *APIError {
	return NewAPIError(http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
}

// Storage creates a 500 error wrapping a storage backend failure.
func Storage(message string, err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, CodeStorageError, message).Wrap(err)
}

// Internal creates a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, CodeInternal, message)
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	var ews ErrorWithStatus
	if errors.As(err, &ews) {
		return ews.Code() == code
	}
	return false
}

// StatusCode extracts the HTTP status from err, defaulting to 500.
func StatusCode(err error) int {
	var ews ErrorWithStatus
	if errors.As(err, &ews) {
		return ews.StatusCode()
	}
	return http.StatusInternalServerError
}
