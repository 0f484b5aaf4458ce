package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types for consistent error handling across the web client.

// DefaultErrorMessage is shown when an error carries no readable message.
const DefaultErrorMessage = "An unexpected error occurred"

// APIError is a non-2xx response reported by the CRM backend.
type APIError struct {
	Status  int
	Message string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s returned %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s returned %d", e.Path, e.Status)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a transport failure talking to the backend.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a form-level validation error, raised before any request.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrRateLimited indicates too many login attempts from one client.
type ErrRateLimited struct {
	RetryAfter int
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("too many attempts, try again in %ds", e.RetryAfter)
}

// IsUnauthorized reports whether err means the bearer token was rejected.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}
	var unauth *ErrUnauthorized
	return errors.As(err, &unauth)
}

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// ErrorMessage picks the text shown to the user: the server-reported message,
// else the transport message, else DefaultErrorMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return DefaultErrorMessage
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return DefaultErrorMessage
	}

	var validation *ErrValidation
	if errors.As(err, &validation) {
		return validation.Message
	}

	var ext *ErrExternalService
	if errors.As(err, &ext) && ext.Err != nil {
		if msg := ext.Err.Error(); msg != "" {
			return msg
		}
		return DefaultErrorMessage
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}
