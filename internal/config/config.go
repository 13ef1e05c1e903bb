// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all runtime settings.
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Store           string        `env:"STORE" envDefault:"postgres"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DB DB

	Notify Notify

	TeamJoinAttempts int `env:"TEAM_JOIN_ATTEMPTS" envDefault:"3"`
}

// DB holds PostgreSQL connection settings. URL takes precedence over the
// individual fields.
type DB struct {
	URL             string `env:"DATABASE_URL"`
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            string `env:"DB_PORT" envDefault:"5432"`
	User            string `env:"DB_USER" envDefault:"postgres"`
	Password        string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name            string `env:"DB_NAME" envDefault:"eventbooking"`
	SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns        int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns        int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	ConnectAttempts uint   `env:"DB_CONNECT_ATTEMPTS" envDefault:"5"`
}

// Notify holds the notification dispatcher policy.
type Notify struct {
	Concurrency int64         `env:"NOTIFY_CONCURRENCY" envDefault:"8"`
	MaxAttempts uint          `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
	Timeout     time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
}

// DSN builds a libpq-compatible connection string.
func (c DB) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Load reads .env files (if present) into the process environment without
// overriding variables already set, then parses Config.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.TeamJoinAttempts <= 0 {
		return errors.New("TEAM_JOIN_ATTEMPTS must be positive")
	}
	if c.Notify.Concurrency <= 0 {
		return errors.New("NOTIFY_CONCURRENCY must be positive")
	}
	if c.Notify.MaxAttempts == 0 {
		return errors.New("NOTIFY_MAX_ATTEMPTS must be positive")
	}
	return nil
}
