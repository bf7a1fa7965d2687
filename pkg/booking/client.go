package booking

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/eshaffer321/tablebook-go/internal/auth"
	"github.com/eshaffer321/tablebook-go/internal/session"
	"github.com/eshaffer321/tablebook-go/internal/transport"
	internalTypes "github.com/eshaffer321/tablebook-go/internal/types"
)

const (
	// DefaultBaseURL is the default consumer API base URL
	DefaultBaseURL = internalTypes.DefaultBaseURL

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = internalTypes.DefaultTimeout

	// DefaultRestaurant is the microsite the original deployment serves
	DefaultRestaurant = "TheHungryUnicorn"
)

// Client is the main booking API client
type Client struct {
	// Service interfaces
	Availability AvailabilityService
	Bookings     BookingService
	Auth         AuthService

	// Internal fields
	baseURL   string
	transport Transport
	options   *ClientOptions
	store     *session.TokenStore
}

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL overrides the default API base URL
	BaseURL string

	// AuthBaseURL overrides where /auth/* lives (default: origin of BaseURL)
	AuthBaseURL string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// Token provides a direct access token, overriding any persisted one
	Token string

	// Storage persists the session between runs (default: in memory)
	Storage Storage

	// Logger for debug logging
	Logger Logger

	// RetryConfig enables retry of transient failures
	RetryConfig *RetryConfig

	// RateLimiter for rate limiting
	RateLimiter RateLimiter

	// Hooks for observability
	Hooks *internalTypes.Hooks

	// RefreshTimeout bounds each token refresh call
	RefreshTimeout time.Duration

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions
}

// RetryConfig configures retry of transient failures
type RetryConfig = internalTypes.RetryConfig

// Logger interface for logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RateLimiter interface for rate limiting; *rate.Limiter satisfies it
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Transport sends REST requests
type Transport interface {
	Do(ctx context.Context, req *transport.Request, result interface{}) error
}

// NewClient creates a new booking client
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}

	// Initialize Sentry if DSN is provided
	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}

		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}

		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}

		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}

		if err := sentry.Init(sentryOpts); err != nil {
			// Log error but don't fail client creation
			if opts.Logger != nil {
				opts.Logger.Error("Failed to initialize Sentry", "error", err)
			}
		}
	}

	// Set defaults
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}

	// Rehydrate the persisted session
	var logger internalTypes.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	}
	store := session.NewTokenStore(opts.Storage, logger)
	store.Load(context.Background())

	if opts.Token != "" {
		store.SetToken(context.Background(), opts.Token)
	}

	trans := transport.NewRESTTransport(&transport.Options{
		BaseURL:        opts.BaseURL,
		AuthBaseURL:    opts.AuthBaseURL,
		HTTPClient:     opts.HTTPClient,
		RetryConfig:    opts.RetryConfig,
		Logger:         logger,
		Hooks:          opts.Hooks,
		Store:          store,
		RefreshTimeout: opts.RefreshTimeout,
	})

	c := &Client{
		baseURL:   trans.BaseURL(),
		transport: trans,
		options:   opts,
		store:     store,
	}

	c.initServices(auth.NewService(c, store, logger))

	return c, nil
}

// NewClientWithToken creates a client with an access token
func NewClientWithToken(token string) (*Client, error) {
	return NewClient(&ClientOptions{
		Token: token,
	})
}

// initServices initializes all service implementations
func (c *Client) initServices(authSvc *auth.Service) {
	c.Availability = &availabilityService{client: c}
	c.Bookings = &bookingService{client: c}
	c.Auth = &authService{client: c, service: authSvc}
}

// SetToken replaces the access token, keeping role and email
func (c *Client) SetToken(token string) {
	c.store.SetToken(context.Background(), token)
}

// GetSession returns the current session
func (c *Client) GetSession() Session {
	return c.store.Get()
}

// Do sends a request through the rate limiter and transport, reporting failures to Sentry.
// It lets the auth service share the client's instrumentation.
func (c *Client) Do(ctx context.Context, req *transport.Request, result interface{}) error {
	// Rate limiting
	if c.options.RateLimiter != nil {
		if err := c.options.RateLimiter.Wait(ctx); err != nil {
			captureException(ctx, err, nil)
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	err := c.transport.Do(ctx, req, result)
	duration := time.Since(start)

	// Capture errors in Sentry
	if err != nil && !IsNotFound(err) {
		captureException(ctx, err, map[string]interface{}{
			"method":   req.Method,
			"path":     req.Path,
			"duration": duration.String(),
		})
	}

	return err
}

// Close flushes any pending Sentry events and performs cleanup
func (c *Client) Close() {
	// Flush Sentry events with a 2 second timeout
	sentry.Flush(2 * time.Second)
}

func captureException(ctx context.Context, err error, details map[string]interface{}) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if details != nil {
			if path, ok := details["path"].(string); ok {
				scope.SetTag("api.path", path)
			}
			scope.SetContext("api", details)
		}
		hub.CaptureException(err)
	})
}
