// Package config loads the configuration of the eventtable command from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names accepted by EVENTTABLE_BACKEND.
const (
	MemoryBackend = "memory"
	BoltBackend   = "bolt"
	SQLBackend    = "sql"
	MongoBackend  = "mongo"
)

// Config is the configuration of the eventtable command.
type Config struct {
	Backend string `env:"EVENTTABLE_BACKEND" envDefault:"memory"`

	BoltPath string `env:"EVENTTABLE_BOLT_PATH" envDefault:"eventtable.boltdb"`

	SQLDriver string `env:"EVENTTABLE_SQL_DRIVER" envDefault:"sqlite"`
	SQLDSN    string `env:"EVENTTABLE_SQL_DSN" envDefault:"file:eventtable.sqlite3"`

	MongoURI      string `env:"EVENTTABLE_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"EVENTTABLE_MONGO_DATABASE" envDefault:"eventtable"`

	EventTable   string `env:"EVENTTABLE_EVENT_TABLE" envDefault:"events"`
	MessageTable string `env:"EVENTTABLE_MESSAGE_TABLE" envDefault:"messages"`

	Debug   bool          `env:"EVENTTABLE_DEBUG"`
	Timeout time.Duration `env:"EVENTTABLE_TIMEOUT" envDefault:"10s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the configuration described by the environment.
func Load() (Config, error) {
	var cfg Config

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	switch cfg.Backend {
	case MemoryBackend, BoltBackend, SQLBackend, MongoBackend:
	default:
		return Config{}, fmt.Errorf("parse env: unsupported backend %q", cfg.Backend)
	}

	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("parse env: timeout must be positive, got %s", cfg.Timeout)
	}

	return cfg, nil
}
