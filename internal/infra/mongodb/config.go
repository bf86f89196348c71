// Package mongodb connects to MongoDB and bootstraps the collections the
// session store uses.
package mongodb

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Collection names.
const (
	CollectionSessions      = "anonymous_sessions"
	CollectionFitChecks     = "fit_checks"
	CollectionConversations = "conversations"
	CollectionMigrations    = "session_migrations"
)

// Config is parsed from the environment. Defaults suit managed clusters that
// may need a few seconds to accept connections after a cold start.
type Config struct {
	URI             string        `env:"MONGODB_URI,required,notEmpty"`
	Database        string        `env:"MONGODB_DATABASE" envDefault:"jules"`
	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`
	RetryWrites     bool          `env:"MONGODB_RETRY_WRITES" envDefault:"true"`
	RetryReads      bool          `env:"MONGODB_RETRY_READS" envDefault:"true"`
	RetryAttempts   int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
	// SessionTTLGrace delays the server-side TTL removal of expired session
	// documents so the reaper can delete their content first.
	SessionTTLGrace time.Duration `env:"MONGODB_SESSION_TTL_GRACE" envDefault:"168h"`
}

// LoadConfig parses Config from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse mongodb config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("MONGODB_DATABASE must not be empty"))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("MONGODB_CONNECT_TIMEOUT must be positive, got %v", c.ConnectTimeout))
	}
	if c.MinPoolSize > c.MaxPoolSize {
		errs = append(errs, fmt.Errorf("MONGODB_MIN_POOL_SIZE (%d) exceeds MONGODB_MAX_POOL_SIZE (%d)", c.MinPoolSize, c.MaxPoolSize))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("MONGODB_RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts))
	}
	if c.SessionTTLGrace < 0 {
		errs = append(errs, fmt.Errorf("MONGODB_SESSION_TTL_GRACE must not be negative, got %v", c.SessionTTLGrace))
	}
	return errors.Join(errs...)
}
