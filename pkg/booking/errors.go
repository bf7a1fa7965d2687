package booking

import (
	"errors"
	"fmt"

	internalTypes "github.com/eshaffer321/tablebook-go/internal/types"
)

var (
	// ErrNotAuthenticated is returned when authentication is required or credentials are rejected
	ErrNotAuthenticated = internalTypes.ErrNotAuthenticated

	// ErrForbidden is returned when the session lacks access to a resource
	ErrForbidden = internalTypes.ErrForbidden

	// ErrNotFound is returned when resource not found
	ErrNotFound = internalTypes.ErrNotFound

	// ErrValidation is returned when a request is rejected locally or by the API
	ErrValidation = internalTypes.ErrValidation

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = internalTypes.ErrRateLimited

	// ErrTimeout is returned on timeout
	ErrTimeout = internalTypes.ErrTimeout

	// ErrServerError is returned for server errors
	ErrServerError = internalTypes.ErrServerError

	// ErrNetwork is returned when no response was received
	ErrNetwork = internalTypes.ErrNetwork

	// ErrRefreshExhausted is returned when the token could not be refreshed.
	// The session has been cleared by the time a caller sees it.
	ErrRefreshExhausted = internalTypes.ErrRefreshExhausted

	// ErrSlotUnavailable is returned when a time slot is full or too small for the party
	ErrSlotUnavailable = errors.New("time slot unavailable")

	// ErrSlotNotFound is returned when the restaurant no longer offers the requested time
	ErrSlotNotFound = errors.New("time slot not offered")

	// ErrBookingCancelled is returned when changing a booking that has been cancelled
	ErrBookingCancelled = errors.New("booking is cancelled")
)

// Error represents an API error
type Error = internalTypes.Error

// RefreshError carries the refresh failure and the request error that triggered it
type RefreshError = internalTypes.RefreshError

// ValidationError represents validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []*ValidationError `json:"errors"`
}

// Error implements the error interface
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d validation errors occurred", len(e.Errors))
}

// Is lets local validation failures match ErrValidation like server-side ones
func (e *ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// IsAuthError checks if error is authentication related
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrRefreshExhausted)
}

// IsNotFound checks if error is a 404
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the request was rejected as invalid
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRetryable checks if error is retryable
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError) {
		return true
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}

	return false
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	return internalTypes.StatusCode(err)
}
