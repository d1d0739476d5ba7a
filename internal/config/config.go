// Package config reads service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings.
type Config struct {
	// Port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8080"`

	// Backend selects the store: "postgres" or "memory". The memory backend
	// exists for local runs and tests; it holds nothing across restarts.
	Backend string `env:"DB_BACKEND" envDefault:"postgres"`

	DB struct {
		Host     string `env:"DB_HOST" envDefault:"localhost"`
		Port     string `env:"DB_PORT" envDefault:"5432"`
		User     string `env:"DB_USER" envDefault:"postgres"`
		Password string `env:"DB_PASSWORD" envDefault:"postgres"`
		Name     string `env:"DB_NAME" envDefault:"registrations"`
		SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	}

	// RedisAddr enables the asynq notification emitter when non-empty.
	// Empty means notifications are logged only.
	RedisAddr string `env:"REDIS_ADDR"`

	// MaxTxRetries bounds internal retries on transaction conflicts before
	// the operation is surfaced as a temporary failure.
	MaxTxRetries int `env:"MAX_TX_RETRIES" envDefault:"3"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Backend != "postgres" && cfg.Backend != "memory" {
		return nil, fmt.Errorf("unknown DB_BACKEND %q", cfg.Backend)
	}
	if cfg.MaxTxRetries < 1 {
		return nil, fmt.Errorf("MAX_TX_RETRIES must be at least 1")
	}
	return &cfg, nil
}

// DSN builds a libpq-compatible connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}
