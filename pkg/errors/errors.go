package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Validation errors: malformed payloads, missing required fields.
	// Always returned as a typed result, never raised: webhook senders
	// need a deterministic 400-class response
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Authentication errors: bad webhook signatures, bad viewer tokens
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken     ErrorCode = "INVALID_TOKEN"
	ErrCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"

	// Authorization errors
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeAccessDenied ErrorCode = "ACCESS_DENIED"

	// Not found errors
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeFileNotFound ErrorCode = "FILE_NOT_FOUND"

	// Configuration errors are deployment problems no request can remedy;
	// raised to the operator, never converted to a callback result
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeMissingAPIKey ErrorCode = "MISSING_API_KEY"

	// Transient external errors: remote delete failures, timeouts;
	// reported with enough detail to retry, local state untouched
	ErrCodeRemoteDelete    ErrorCode = "REMOTE_DELETE_FAILED"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Rate limiting errors
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// AppError represents an application error with code and HTTP status
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(err error, code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest)
}

// NewNotFound creates a not found error (404)
func NewNotFound(message string) *AppError {
	return New(ErrCodeNotFound, message, http.StatusNotFound)
}

// NewConfiguration creates a configuration error (500)
func NewConfiguration(message string) *AppError {
	return New(ErrCodeConfiguration, message, http.StatusInternalServerError)
}

// NewInternal creates an internal error (500)
func NewInternal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}
