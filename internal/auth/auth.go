package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/eshaffer321/tablebook-go/internal/session"
	"github.com/eshaffer321/tablebook-go/internal/transport"
	"github.com/eshaffer321/tablebook-go/internal/types"
)

const (
	loginEndpoint    = "/auth/login"
	registerEndpoint = "/auth/register"
	logoutEndpoint   = "/auth/logout"
	meEndpoint       = "/auth/me"
)

// Doer sends API requests
type Doer interface {
	Do(ctx context.Context, req *transport.Request, result interface{}) error
}

// Service handles authentication operations
type Service struct {
	transport Doer
	store     *session.TokenStore
	logger    types.Logger
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	UserType types.UserType `json:"user_type"`
}

// RegisterRequest is the body of POST /auth/register.
// Customers send first_name and surname, restaurants send name.
type RegisterRequest struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	UserType  types.UserType `json:"user_type"`
	FirstName string         `json:"first_name,omitempty"`
	Surname   string         `json:"surname,omitempty"`
	Name      string         `json:"name,omitempty"`
}

// Profile is returned by GET /auth/me
type Profile struct {
	Email     string         `json:"email"`
	UserType  types.UserType `json:"user_type"`
	FirstName string         `json:"first_name,omitempty"`
	Surname   string         `json:"surname,omitempty"`
	Name      string         `json:"name,omitempty"`
}

// NewService creates a new auth service
func NewService(transport Doer, store *session.TokenStore, logger types.Logger) *Service {
	return &Service{
		transport: transport,
		store:     store,
		logger:    logger,
	}
}

// Login performs authentication and stores the returned session
func (s *Service) Login(ctx context.Context, req LoginRequest) (types.Session, error) {
	if s.logger != nil {
		s.logger.Debug("Login request", "email", req.Email, "userType", req.UserType)
	}

	var resp types.TokenResponse
	err := s.transport.Do(ctx, &transport.Request{
		Method:      http.MethodPost,
		Path:        loginEndpoint,
		JSON:        req,
		Auth:        true,
		SkipRefresh: true,
		Anonymous:   true,
	}, &resp)
	if err != nil {
		return types.Session{}, errors.Wrap(err, "login failed")
	}

	return s.establish(ctx, resp, req.Email, req.UserType)
}

// Register creates an account and stores the returned session
func (s *Service) Register(ctx context.Context, req RegisterRequest) (types.Session, error) {
	// Only send the name fields that belong to the role
	switch req.UserType {
	case types.UserTypeCustomer:
		req.Name = ""
	case types.UserTypeRestaurant:
		req.FirstName = ""
		req.Surname = ""
	}

	if s.logger != nil {
		s.logger.Debug("Register request", "email", req.Email, "userType", req.UserType)
	}

	var resp types.TokenResponse
	err := s.transport.Do(ctx, &transport.Request{
		Method:      http.MethodPost,
		Path:        registerEndpoint,
		JSON:        req,
		Auth:        true,
		SkipRefresh: true,
		Anonymous:   true,
	}, &resp)
	if err != nil {
		return types.Session{}, errors.Wrap(err, "registration failed")
	}

	return s.establish(ctx, resp, req.Email, req.UserType)
}

// Logout calls the logout endpoint best-effort and always clears the local session
func (s *Service) Logout(ctx context.Context) {
	err := s.transport.Do(ctx, &transport.Request{
		Method:      http.MethodPost,
		Path:        logoutEndpoint,
		Auth:        true,
		SkipRefresh: true,
	}, nil)
	if err != nil && s.logger != nil {
		s.logger.Debug("Logout request failed, clearing session anyway", "error", err)
	}

	s.store.Clear(ctx)

	if s.logger != nil {
		s.logger.Info("Logged out")
	}
}

// Me fetches the server-side profile of the current user
func (s *Service) Me(ctx context.Context) (*Profile, error) {
	if !s.store.Get().Authenticated() {
		return nil, types.ErrNotAuthenticated
	}

	var profile Profile
	err := s.transport.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   meEndpoint,
		Auth:   true,
	}, &profile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get profile")
	}
	return &profile, nil
}

// GetSession returns the current session
func (s *Service) GetSession() types.Session {
	return s.store.Get()
}

func (s *Service) establish(ctx context.Context, resp types.TokenResponse, email string, requested types.UserType) (types.Session, error) {
	if resp.AccessToken == "" {
		return types.Session{}, errors.New("no token in auth response")
	}

	userType := resp.UserType
	if userType == "" {
		userType = requested
	}

	s.store.Set(ctx, types.Session{
		AccessToken: resp.AccessToken,
		UserType:    userType,
		Email:       strings.TrimSpace(email),
	})

	if s.logger != nil {
		s.logger.Info("Authenticated", "email", email, "userType", userType)
	}

	return s.store.Get(), nil
}
