package model

import "fmt"

// ErrorCode classifies API failures for logging and clients that want more
// than the HTTP status.
type ErrorCode string

const (
	ErrValidation   ErrorCode = "VALIDATION_ERROR"
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrForbidden    ErrorCode = "FORBIDDEN"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrConflict     ErrorCode = "CONFLICT"
	ErrRateLimited  ErrorCode = "RATE_LIMITED"
	ErrCSRF         ErrorCode = "CSRF_ERROR"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error carried alongside the HTTP status.
// The wire format is `{"error": message}`, which is what the frontend
// expects; Code travels in an optional "code" field.
type APIError struct {
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource string) *APIError {
	return &APIError{Code: ErrNotFound, Message: resource + " not found"}
}
