// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All sequence and API errors must use AppError for consistent classification.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal         = "INTERNAL_ERROR"
	CodeDatabase         = "DATABASE_ERROR"
	CodeLockTimeout      = "LOCK_TIMEOUT"
	CodeStatementTimeout = "STATEMENT_TIMEOUT"
	CodeTableMissing     = "SEQUENCE_TABLE_MISSING"

	// Validation errors (400)
	CodeValidation    = "VALIDATION_ERROR"
	CodeConfiguration = "SEQUENCE_CONFIGURATION"

	// Sequence rule violations (422)
	CodeSequenceExhausted = "SEQUENCE_EXHAUSTED"
	CodeSequenceOverflow  = "SEQUENCE_OVERFLOW"

	// Caller misuse (500)
	CodeUnsupportedLifecycle = "UNSUPPORTED_LIFECYCLE"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Conflict (409)
	CodePersistenceConflict = "PERSISTENCE_CONFLICT"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"
)

// AppError is the standard error type for the service.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (sequence name, bounds, values)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewConfiguration creates an invalid sequence configuration error (400).
// Raised once when a generator is built, never per call.
func NewConfiguration(message string) *AppError {
	return &AppError{
		Code:       CodeConfiguration,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewSequenceExhausted creates an error for a sequence that cannot advance past its bound (422)
func NewSequenceExhausted(name string, next, bound int64) *AppError {
	return &AppError{
		Code:       CodeSequenceExhausted,
		Message:    fmt.Sprintf("Sequence '%s' exhausted", name),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"name":  name,
			"next":  next,
			"bound": bound,
		},
	}
}

// NewSequenceOverflow creates an error for int64 overflow while stepping a sequence (422)
func NewSequenceOverflow(name string, current, increment int64) *AppError {
	return &AppError{
		Code:       CodeSequenceOverflow,
		Message:    fmt.Sprintf("Sequence '%s' overflowed int64", name),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"name":      name,
			"current":   current,
			"increment": increment,
		},
	}
}

// NewPersistenceConflict creates an error for a lost insert race or a vanished row (409)
func NewPersistenceConflict(name, operation string) *AppError {
	return &AppError{
		Code:       CodePersistenceConflict,
		Message:    fmt.Sprintf("Failed to %s sequence state for '%s'", operation, name),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"name": name, "operation": operation},
	}
}

// NewLockTimeout creates an error for a row lock that was not granted in time (503).
// The whole transaction may be retried.
func NewLockTimeout(name string) *AppError {
	return &AppError{
		Code:       CodeLockTimeout,
		Message:    fmt.Sprintf("Timed out waiting for lock on sequence '%s'", name),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"name": name},
	}
}

// NewStatementTimeout creates an error for a statement cancelled by
// statement_timeout (503). The whole transaction may be retried.
func NewStatementTimeout(name string) *AppError {
	return &AppError{
		Code:       CodeStatementTimeout,
		Message:    fmt.Sprintf("Statement timed out for sequence '%s'", name),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"name": name},
	}
}

// NewTableMissing creates an error for a sequence table that was never created (500)
func NewTableMissing(name string) *AppError {
	return &AppError{
		Code:       CodeTableMissing,
		Message:    "Sequence table does not exist; run `seqctl schema create`",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"name": name},
	}
}

// NewUnsupportedLifecycle creates an error for a generator invoked outside the insert phase
func NewUnsupportedLifecycle(name string, event any) *AppError {
	return &AppError{
		Code:       CodeUnsupportedLifecycle,
		Message:    fmt.Sprintf("Identifier generator for '%s' only supports INSERT event", name),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"name": name, "event": fmt.Sprint(event)},
	}
}

// NewDatabase creates a database error (500)
func NewDatabase(err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "Database error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"id": id},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// CodeOf returns the AppError code in the chain, or CodeInternal.
func CodeOf(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsConfiguration checks if error is CodeConfiguration
func IsConfiguration(err error) bool { return hasCode(err, CodeConfiguration) }

// IsSequenceExhausted checks if error is CodeSequenceExhausted
func IsSequenceExhausted(err error) bool { return hasCode(err, CodeSequenceExhausted) }

// IsSequenceOverflow checks if error is CodeSequenceOverflow
func IsSequenceOverflow(err error) bool { return hasCode(err, CodeSequenceOverflow) }

// IsPersistenceConflict checks if error is CodePersistenceConflict
func IsPersistenceConflict(err error) bool { return hasCode(err, CodePersistenceConflict) }

// IsLockTimeout checks if error is CodeLockTimeout
func IsLockTimeout(err error) bool { return hasCode(err, CodeLockTimeout) }

// IsStatementTimeout checks if error is CodeStatementTimeout
func IsStatementTimeout(err error) bool { return hasCode(err, CodeStatementTimeout) }

// IsTableMissing checks if error is CodeTableMissing
func IsTableMissing(err error) bool { return hasCode(err, CodeTableMissing) }

// IsUnsupportedLifecycle checks if error is CodeUnsupportedLifecycle
func IsUnsupportedLifecycle(err error) bool { return hasCode(err, CodeUnsupportedLifecycle) }

// IsRetryable reports whether retrying the whole transaction may succeed.
// Only timeouts qualify; every other sequence error is permanent for the call.
func IsRetryable(err error) bool {
	return IsLockTimeout(err) || IsStatementTimeout(err)
}
