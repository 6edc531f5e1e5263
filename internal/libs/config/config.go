// Package config provides application configuration management from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	APIHost  string
	APIPort  string
	LogLevel string
	Env      string

	DBDriver    string
	DatabaseURL string

	QueryTimeout        time.Duration
	ShutdownTimeout     time.Duration
	StorageOpenAttempts int
	StorageOpenBackoff  time.Duration
}

// Load reads configuration from environment variables.
// A .env file in the working directory is applied first if present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		APIHost:     getEnv("HOST", "0.0.0.0"),
		APIPort:     getEnv("PORT", "6776"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Env:         getEnv("ENV", "production"),
		DBDriver:    getEnv("DB_DRIVER", "sqlite3"),
		DatabaseURL: getEnv("DATABASE_URL", "test001.db"),
	}

	var err error
	if cfg.QueryTimeout, err = getDuration("QUERY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.StorageOpenBackoff, err = getDuration("STORAGE_OPEN_BACKOFF", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.StorageOpenAttempts, err = getInt("STORAGE_OPEN_ATTEMPTS", 1); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.APIHost, c.APIPort)
}

// IsDev reports whether the service runs in development mode
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

func (c *Config) validate() error {
	port, err := strconv.Atoi(c.APIPort)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.APIPort)
	}

	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite3 or postgres)", c.DBDriver)
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.StorageOpenAttempts < 1 {
		return fmt.Errorf("STORAGE_OPEN_ATTEMPTS must be at least 1, got %d", c.StorageOpenAttempts)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}
