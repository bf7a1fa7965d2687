package types

import (
	"errors"
	"fmt"
)

// Error represents an API error
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = fmt.Sprintf("error: %s", e.Code)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

// Unwrap returns the sentinel this error classifies as
func (e *Error) Unwrap() error {
	return e.Err
}

// RefreshError is delivered to requests whose refresh cycle failed.
// It matches both ErrRefreshExhausted and, when set, the 401 that started the wait.
type RefreshError struct {
	Cause    error
	Original error
}

func (e *RefreshError) Error() string {
	if e.Cause == nil {
		return ErrRefreshExhausted.Error()
	}
	return fmt.Sprintf("%s: %v", ErrRefreshExhausted, e.Cause)
}

// Is reports ErrRefreshExhausted for every RefreshError
func (e *RefreshError) Is(target error) bool {
	return target == ErrRefreshExhausted
}

// Unwrap exposes the refresh failure and the original request error
func (e *RefreshError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Original != nil {
		errs = append(errs, e.Original)
	}
	return errs
}

// StatusCode extracts the HTTP status from an error chain, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
