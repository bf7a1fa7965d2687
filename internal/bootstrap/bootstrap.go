// Package bootstrap builds a configured booking client for the command line tools.
package bootstrap

import (
	"context"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/eshaffer321/tablebook-go/internal/config"
	"github.com/eshaffer321/tablebook-go/internal/logging"
	"github.com/eshaffer321/tablebook-go/pkg/booking"
)

// Logger builds the zap logger described by cfg
func Logger(cfg *config.Config, service string) (*logging.Logger, error) {
	return logging.New(&logging.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		ServiceName: service,
	})
}

// Storage opens the session backend named by cfg. The returned close func is never nil.
func Storage(ctx context.Context, cfg *config.Config) (booking.Storage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return booking.NewMemoryStorage(), noop, nil
	case config.BackendFile:
		return booking.NewFileStorage(cfg.Storage.Path), noop, nil
	case config.BackendRedis:
		store, err := booking.NewRedisStorage(ctx, booking.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
		})
		if err != nil {
			return nil, noop, errors.Wrap(err, "failed to open session storage")
		}
		return store, store.Close, nil
	default:
		return nil, noop, errors.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// RateLimiter returns a token bucket for cfg, or nil when rate limiting is off
func RateLimiter(cfg *config.Config) booking.RateLimiter {
	if cfg.RateLimit.RPS <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
}

// Client builds a booking client from cfg. Call the returned func to flush and release resources.
func Client(ctx context.Context, cfg *config.Config, logger booking.Logger) (*booking.Client, func(), error) {
	store, closeStore, err := Storage(ctx, cfg)
	if err != nil {
		return nil, func() {}, err
	}

	opts := &booking.ClientOptions{
		BaseURL:        cfg.API.BaseURL,
		AuthBaseURL:    cfg.API.AuthBaseURL,
		HTTPClient:     &http.Client{},
		Timeout:        cfg.API.Timeout,
		Storage:        store,
		Logger:         logger,
		RetryConfig:    cfg.RetryPolicy(),
		RateLimiter:    RateLimiter(cfg),
		RefreshTimeout: cfg.API.RefreshTimeout,
	}
	if cfg.Sentry.DSN != "" {
		opts.SentryDSN = cfg.Sentry.DSN
		opts.SentryOptions = &sentry.ClientOptions{Environment: cfg.Sentry.Environment}
	}

	client, err := booking.NewClient(opts)
	if err != nil {
		_ = closeStore()
		return nil, func() {}, err
	}

	cleanup := func() {
		client.Close()
		if err := closeStore(); err != nil && logger != nil {
			logger.Warn("Failed to close session storage", "error", err)
		}
	}
	return client, cleanup, nil
}
