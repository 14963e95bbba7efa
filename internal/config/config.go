// Package config loads service configuration from environment variables
// via envconfig.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the service reads at startup.
type Config struct {
	// --- HTTP ---
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// --- Storage ---
	// Backend selects the store: "sqlite" (default, single file) or
	// "postgres" (shared, multi-instance).
	Backend    string `envconfig:"STORAGE_BACKEND" default:"sqlite"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"gacha.db"`

	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"gacha"`
	DBPassword string `envconfig:"DB_PASSWORD" default:""`
	DBName     string `envconfig:"DB_NAME" default:"gacha"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`

	// --- Pools ---
	// PoolsPath is the directory holding default.yaml plus one yaml file
	// per pool.
	PoolsPath     string `envconfig:"POOLS_PATH" default:"configs"`
	PoolsWatch    bool   `envconfig:"POOLS_WATCH" default:"true"`
	PoolsWatchSec int    `envconfig:"POOLS_WATCH_SECONDS" default:"10"`

	// --- Economy ---
	StartingBalance int64 `envconfig:"ECONOMY_STARTING_BALANCE" default:"1000"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Backend {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must not be empty")
		}
	case "postgres":
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Backend)
	}
	if c.PoolsPath == "" {
		return fmt.Errorf("POOLS_PATH must not be empty")
	}
	if c.PoolsWatchSec <= 0 {
		return fmt.Errorf("POOLS_WATCH_SECONDS must be > 0")
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("ECONOMY_STARTING_BALANCE must not be negative")
	}
	return nil
}

// Load reads the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
