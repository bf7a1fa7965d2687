package types

import (
	"context"
	"net/http"
	"time"
)

// UserType is the role attached to a session
type UserType string

const (
	UserTypeCustomer   UserType = "customer"
	UserTypeRestaurant UserType = "restaurant"
)

// Valid reports whether the user type is one the API accepts
func (u UserType) Valid() bool {
	return u == UserTypeCustomer || u == UserTypeRestaurant
}

// Session represents the client-held authentication state
type Session struct {
	AccessToken string    `json:"accessToken"`
	UserType    UserType  `json:"userType"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
}

// Authenticated reports whether the session carries an access token.
// UserType and Email may be stale when the token is empty.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Expired reports whether the token's exp claim has passed
func (s Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// TokenResponse is returned by login, register and refresh
type TokenResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	UserType    UserType `json:"user_type"`
}

// Logger interface for logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RetryConfig configures retry of transient failures
type RetryConfig struct {
	MaxRetries int           `json:"maxRetries"`
	RetryWait  time.Duration `json:"retryWait"`
	MaxWait    time.Duration `json:"maxWait"`
}

// Hooks provides lifecycle hooks for requests
type Hooks struct {
	OnRequest  func(ctx context.Context, req *http.Request)
	OnResponse func(ctx context.Context, resp *http.Response, duration time.Duration)
	OnError    func(ctx context.Context, err error)
}
