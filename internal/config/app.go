// Package config loads the API server settings and the optional usage
// limits policy file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// StorageConfig selects the session store backend. The worker reads it on
// its own.
type StorageConfig struct {
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
}

// LoadStorage parses and validates StorageConfig.
func LoadStorage() (*StorageConfig, error) {
	cfg, err := env.ParseAs[StorageConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse storage config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage config: %w", err)
	}
	return &cfg, nil
}

func (c StorageConfig) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of postgres, mongo, memory, got %q", c.StorageDriver)
	}
	return nil
}

// AppConfig holds the API server settings.
type AppConfig struct {
	Env     string `env:"APP_ENV" envDefault:"production"`
	Version string `env:"APP_VERSION" envDefault:"dev"`
	Port    int    `env:"PORT" envDefault:"8080"`

	StorageConfig

	// JWTSecret verifies bearer tokens issued by the account service.
	JWTSecret string `env:"JWT_SECRET"`
	// AuthDisabled lets every caller through admin routes. Development only.
	AuthDisabled bool `env:"AUTH_DISABLED" envDefault:"false"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	UsageLimitsFile  string  `env:"USAGE_LIMITS_FILE"`
	OpenAIAPIKey     string  `env:"OPENAI_API_KEY"`
	TraceSampleRatio float64 `env:"TRACE_SAMPLE_RATIO" envDefault:"0.1"`
}

// Load parses AppConfig from the environment and validates it.
func Load() (*AppConfig, error) {
	cfg, err := env.ParseAs[AppConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse app config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment reports whether APP_ENV is "development".
func (c *AppConfig) IsDevelopment() bool { return c.Env == "development" }

// Addr is the listen address.
func (c *AppConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }

func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.StorageConfig.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.AuthDisabled && !c.IsDevelopment() {
		errs = append(errs, errors.New("AUTH_DISABLED is only allowed with APP_ENV=development"))
	}
	if !c.AuthDisabled && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %v", c.RequestTimeout))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes))
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		errs = append(errs, fmt.Errorf("TRACE_SAMPLE_RATIO must be within [0, 1], got %v", c.TraceSampleRatio))
	}
	return errors.Join(errs...)
}
