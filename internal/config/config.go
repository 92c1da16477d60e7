// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host      string `envconfig:"APP_HOST" default:"0.0.0.0"`
	Port      string `envconfig:"APP_PORT" default:"8080"`
	Env       string `envconfig:"APP_ENV" default:"development"` // "development", "production", "testing"
	SiteTitle string `envconfig:"SITE_TITLE" default:"inkpress"`

	// PostgreSQL connection
	DBHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	DBPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	DBUser     string `envconfig:"POSTGRES_USER" default:"inkpress"`
	DBPassword string `envconfig:"POSTGRES_PASSWORD" default:"changeme"`
	DBName     string `envconfig:"POSTGRES_DB" default:"inkpress"`

	// Valkey (Redis-compatible cache)
	ValkeyHost     string `envconfig:"VALKEY_HOST" default:"localhost"`
	ValkeyPort     string `envconfig:"VALKEY_PORT" default:"6379"`
	ValkeyPassword string `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB       int    `envconfig:"VALKEY_DB" default:"0"`

	// Comments
	CommentCacheTTL   time.Duration `envconfig:"COMMENT_CACHE_TTL" default:"5m"`
	CommentRateLimit  int           `envconfig:"COMMENT_RATE_LIMIT" default:"5"`
	CommentRateWindow time.Duration `envconfig:"COMMENT_RATE_WINDOW" default:"10m"`

	// S3-compatible object storage for backups
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"fsn1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"inkpress-backups"`

	// Backups
	BackupSchedule string `envconfig:"BACKUP_SCHEDULE"` // cron spec, empty disables
	BackupKeep     int    `envconfig:"BACKUP_KEEP" default:"7"`
}

// Load reads configuration from an optional .env file and the environment,
// applying defaults for development where appropriate. Returns an error if
// critical values are missing in production mode.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "" || cfg.DBPassword == "changeme" {
			return nil, errors.New("POSTGRES_PASSWORD must be set in production")
		}
	}
	if cfg.CommentRateLimit < 1 {
		return nil, fmt.Errorf("COMMENT_RATE_LIMIT must be positive, got %d", cfg.CommentRateLimit)
	}
	if cfg.BackupKeep < 1 {
		return nil, fmt.Errorf("BACKUP_KEEP must be positive, got %d", cfg.BackupKeep)
	}
	if cfg.BackupSchedule != "" {
		if _, err := cron.ParseStandard(cfg.BackupSchedule); err != nil {
			return nil, fmt.Errorf("BACKUP_SCHEDULE %q: %w", cfg.BackupSchedule, err)
		}
	}
	if cfg.ValkeyDB < 0 {
		return nil, fmt.Errorf("VALKEY_DB must not be negative, got %d", cfg.ValkeyDB)
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// S3Enabled reports whether object storage credentials are configured.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// BackupEnabled reports whether the server should schedule backups.
func (c *Config) BackupEnabled() bool {
	return c.S3Enabled() && c.BackupSchedule != ""
}
