// Package config loads service configuration from the environment, with an
// optional .env file for development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full service configuration. Every field maps to an
// environment variable; defaults suit local development.
type Config struct {
	AppName    string `env:"APP_NAME" envDefault:"Chatty Backend"`
	AppVersion string `env:"APP_VERSION" envDefault:"0.1.0"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	Debug      bool   `env:"DEBUG" envDefault:"false"`

	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8000"`

	// DatabasePath is the SQLite database file. ":memory:" works for
	// throwaway runs.
	DatabasePath string `env:"DATABASE_PATH" envDefault:"chatty.db"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// MaxConnections caps concurrent websocket connections. 0 means no cap.
	MaxConnections int `env:"MAX_CONNECTIONS" envDefault:"0"`

	// WriteTimeout bounds a single websocket write before that delivery is
	// abandoned.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"5s"`

	EnableMetrics bool `env:"ENABLE_METRICS" envDefault:"false"`

	NgrokEnabled bool   `env:"NGROK_ENABLED" envDefault:"false"`
	NgrokDomain  string `env:"NGROK_DOMAIN"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values outside the supported sets.
func (c Config) Validate() error {
	switch c.AppEnv {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("APP_ENV must be development, staging, or production, got %q", c.AppEnv)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARNING", "ERROR":
	default:
		return fmt.Errorf("LOG_LEVEL must be DEBUG, INFO, WARNING, or ERROR, got %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be in 1..65535, got %d", c.Port)
	}
	return nil
}

// Addr is the host:port the HTTP server binds.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool { return c.AppEnv == "development" }

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool { return c.AppEnv == "production" }

func (c Config) slogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger according to LOG_FORMAT and LOG_LEVEL.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.slogLevel()}
	if strings.ToLower(c.LogFormat) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
