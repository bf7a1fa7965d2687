package types

import (
	"errors"
	"time"
)

const (
	// DefaultBaseURL is the default consumer API base URL
	DefaultBaseURL = "http://localhost:8547/api/ConsumerApi/v1"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// DefaultRefreshTimeout bounds a single call to the refresh endpoint
	DefaultRefreshTimeout = 15 * time.Second

	// UserAgent is the user agent string
	UserAgent = "tablebook-go/1.0.0"

	// ChannelCode is sent with every availability search and booking
	ChannelCode = "ONLINE"
)

// Storage keys for the persisted session fields
const (
	TokenKey    = "rb_token"
	UserTypeKey = "rb_user_type"
	EmailKey    = "rb_email"

	// CookiesKey holds the auth cookies (the refresh cookie) as JSON
	CookiesKey = "rb_cookies"
)

// Common errors
var (
	// ErrNotAuthenticated is returned when the API rejects the credentials or token (401)
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when the token is valid but lacks access (403)
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrValidation is returned when the API rejects the request payload (400/422)
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")

	// ErrNetwork is returned when the request never produced a response
	ErrNetwork = errors.New("network error")

	// ErrRefreshExhausted is returned to every request waiting on a refresh that failed
	ErrRefreshExhausted = errors.New("token refresh failed")
)
