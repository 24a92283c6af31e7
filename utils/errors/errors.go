package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	// Details is logged for server errors and never sent to clients.
	Details string `json:"-"`
	cause   error
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Is matches on code so that errors.Is(err, ErrNotFound) holds for any
// not-found error regardless of its message.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidInput = NewAPIError("VALIDATION_ERROR", "Invalid request data", http.StatusBadRequest)
	ErrUnauthorized = NewAPIError("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrForbidden    = NewAPIError("FORBIDDEN", "Not authorized", http.StatusForbidden)
	ErrNotFound     = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrInternal     = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	// Duplicate registrations are reported as 400 to keep the client contract.
	ErrConflict   = NewAPIError("CONFLICT", "Resource conflict", http.StatusBadRequest)
	ErrDependency = NewAPIError("DEPENDENCY_ERROR", "Server error", http.StatusInternalServerError)
)

// Validation returns a 400 with the given message.
func Validation(message string) *APIError {
	return NewAPIError(ErrInvalidInput.Code, message, ErrInvalidInput.Status)
}

func NotFound(message string) *APIError {
	return NewAPIError(ErrNotFound.Code, message, ErrNotFound.Status)
}

func Forbidden(message string) *APIError {
	return NewAPIError(ErrForbidden.Code, message, ErrForbidden.Status)
}

func Conflict(message string) *APIError {
	return NewAPIError(ErrConflict.Code, message, ErrConflict.Status)
}

// Dependency wraps a persistence or upstream failure. The cause is kept for
// logging; clients only see the generic message.
func Dependency(err error, op string) *APIError {
	apiErr := NewAPIError(ErrDependency.Code, ErrDependency.Message, ErrDependency.Status, fmt.Sprintf("%s: %v", op, err))
	apiErr.cause = err
	return apiErr
}

func Wrap(err error, code, message string, status int) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	wrapped := NewAPIError(code, message, status, err.Error())
	wrapped.cause = err
	return wrapped
}

// As extracts the *APIError from err, mapping anything else to ErrInternal.
func As(err error) *APIError {
	return Wrap(err, ErrInternal.Code, ErrInternal.Message, ErrInternal.Status)
}
