package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeProvider   ErrorType = "provider_error"
	ErrorTypeServer     ErrorType = "server_error"
)

// APIError represents a structured error surfaced at the service boundary.
type APIError struct {
	Type    ErrorType `json:"type"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level
// error body.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewValidationError creates an APIError for malformed or oversized input.
// Validation errors are rejected before any provider call and never retried.
func NewValidationError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Param:   param,
		Message: message,
	}
}

// NewProviderError creates an APIError for upstream provider failures.
func NewProviderError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeProvider,
		Message: message,
	}
}

// NewServerError creates an APIError for internal failures.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServer,
		Message: message,
	}
}
