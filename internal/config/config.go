// Package config provides Viper-based configuration for the tablebook CLI and MCP server
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/eshaffer321/tablebook-go/internal/types"
)

// EnvPrefix is prepended to every environment variable, e.g. TABLEBOOK_API_BASE_URL
const EnvPrefix = "TABLEBOOK"

// Storage backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config represents the complete tablebook configuration
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Output    OutputConfig    `mapstructure:"output"`
}

// APIConfig locates the booking API
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AuthBaseURL    string        `mapstructure:"auth_base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
	Restaurant     string        `mapstructure:"restaurant"`
}

// StorageConfig selects where the session is persisted
type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// SentryConfig enables error reporting when DSN is set
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// RateLimitConfig throttles outgoing requests. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// RetryConfig enables retry of transient failures. MaxRetries 0 disables it.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	RetryWait  time.Duration `mapstructure:"retry_wait"`
	MaxWait    time.Duration `mapstructure:"max_wait"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

// Load reads configuration from an optional .env file, a config file and environment variables.
// Values already in the environment win over the .env file.
func Load(cfgFile, envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".tablebook")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tablebook")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads an explicit env file, or ./.env when present
func loadEnvFile(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", types.DefaultBaseURL)
	v.SetDefault("api.auth_base_url", "")
	v.SetDefault("api.timeout", types.DefaultTimeout)
	v.SetDefault("api.refresh_timeout", types.DefaultRefreshTimeout)
	v.SetDefault("api.restaurant", "TheHungryUnicorn")

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", DefaultSessionPath())
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "tablebook:")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.encoding", "console")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")

	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 1)

	v.SetDefault("retry.max_retries", 0)
	v.SetDefault("retry.retry_wait", time.Second)
	v.SetDefault("retry.max_wait", 10*time.Second)

	v.SetDefault("output.colors", true)
}

// DefaultSessionPath is where the file backend keeps the session
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".tablebook-session.json")
	}
	return filepath.Join(dir, "tablebook", "session.json")
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}

	switch cfg.Storage.Backend {
	case BackendMemory, BackendRedis:
	case BackendFile:
		if cfg.Storage.Path == "" {
			return errors.New("storage.path is required for the file backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be memory, file, or redis)", cfg.Storage.Backend)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}

	validEncodings := map[string]bool{"console": true, "json": true}
	if !validEncodings[cfg.Logging.Encoding] {
		return fmt.Errorf("invalid logging encoding: %s (must be console or json)", cfg.Logging.Encoding)
	}

	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst < 1 {
		return errors.New("rate_limit.burst must be at least 1")
	}

	return nil
}

// RetryPolicy returns client retry settings, or nil when retries are disabled
func (c *Config) RetryPolicy() *types.RetryConfig {
	if c.Retry.MaxRetries <= 0 {
		return nil
	}
	return &types.RetryConfig{
		MaxRetries: c.Retry.MaxRetries,
		RetryWait:  c.Retry.RetryWait,
		MaxWait:    c.Retry.MaxWait,
	}
}
