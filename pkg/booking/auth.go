package booking

import (
	"context"

	"github.com/eshaffer321/tablebook-go/internal/auth"
)

// authService implements the AuthService interface
type authService struct {
	client  *Client
	service *auth.Service
}

// Login authenticates and stores the new session
func (a *authService) Login(ctx context.Context, creds *Credentials) (*Session, error) {
	if creds == nil {
		creds = &Credentials{}
	}
	if creds.UserType == "" {
		creds.UserType = UserTypeCustomer
	}
	if err := validateParams(creds); err != nil {
		return nil, err
	}

	session, err := a.service.Login(ctx, auth.LoginRequest{
		Email:    creds.Email,
		Password: creds.Password,
		UserType: creds.UserType,
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Register creates an account and stores the new session
func (a *authService) Register(ctx context.Context, params *RegisterParams) (*Session, error) {
	if params == nil {
		params = &RegisterParams{}
	}
	if params.UserType == "" {
		params.UserType = UserTypeCustomer
	}
	if err := validateParams(params); err != nil {
		return nil, err
	}

	session, err := a.service.Register(ctx, auth.RegisterRequest{
		Email:     params.Email,
		Password:  params.Password,
		UserType:  params.UserType,
		FirstName: params.FirstName,
		Surname:   params.Surname,
		Name:      params.Name,
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Logout ends the session
func (a *authService) Logout(ctx context.Context) {
	a.service.Logout(ctx)
}

// CurrentSession returns the stored session
func (a *authService) CurrentSession() Session {
	return a.service.GetSession()
}

// IsAuthenticated reports whether an access token is held
func (a *authService) IsAuthenticated() bool {
	return a.service.GetSession().Authenticated()
}

// Me fetches the signed-in account from the server
func (a *authService) Me(ctx context.Context) (*Profile, error) {
	return a.service.Me(ctx)
}
