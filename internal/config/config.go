// Package config loads board server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the board server reads at startup.
type Config struct {
	Port      string `env:"PORT"       envDefault:"8080"`
	DBPath    string `env:"DB_PATH"    envDefault:"data/boards.db"`
	NamingURL string `env:"NAMING_URL"`
	PublicURL string `env:"PUBLIC_URL"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	TickInterval      time.Duration `env:"BOARD_TICK_INTERVAL" envDefault:"5s"`
	OutboxSize        int           `env:"CONN_OUTBOX_SIZE"    envDefault:"256"`
	DeregisterTimeout time.Duration `env:"DEREGISTER_TIMEOUT"  envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"    envDefault:"10s"`

	// Empty allows any origin.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads an optional .env file, then parses and validates the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse parses and validates the environment without touching .env.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("BOARD_TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.OutboxSize <= 0 {
		return fmt.Errorf("CONN_OUTBOX_SIZE must be positive, got %d", c.OutboxSize)
	}
	if c.DeregisterTimeout <= 0 {
		return fmt.Errorf("DEREGISTER_TIMEOUT must be positive, got %s", c.DeregisterTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// LocalNaming reports whether the server hosts the naming layer itself.
func (c Config) LocalNaming() bool {
	return c.NamingURL == ""
}
