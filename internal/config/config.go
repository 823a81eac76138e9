// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads service configuration from a YAML file, the
// environment and command-line flags.
package config

import (
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/logging"
	"github.com/holomush/accounts/internal/notify"
)

// Reset code store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Notifier backends.
const (
	NotifierLog  = "log"
	NotifierSMTP = "smtp"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Reset    ResetConfig    `koanf:"reset"`
	Redis    RedisConfig    `koanf:"redis"`
	Notifier NotifierConfig `koanf:"notifier"`
	SMTP     SMTPConfig     `koanf:"smtp"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the metrics and health listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// ResetConfig configures password reset codes.
type ResetConfig struct {
	// CodeTTL is how long an issued code stays valid. Zero disables expiry.
	CodeTTL time.Duration `koanf:"code_ttl"`
	Store   string        `koanf:"store"`
}

// RedisConfig configures the redis reset code store.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// NotifierConfig selects how reset codes are delivered.
type NotifierConfig struct {
	Kind string `koanf:"kind"`
}

// SMTPConfig configures the SMTP notifier.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: "127.0.0.1:8080", ShutdownTimeout: 10 * time.Second},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:      LogConfig{Format: "json", Level: "info"},
		Reset:    ResetConfig{CodeTTL: auth.DefaultResetCodeTTL, Store: StoreMemory},
		Redis:    RedisConfig{Addr: "127.0.0.1:6379"},
		Notifier: NotifierConfig{Kind: NotifierLog},
		SMTP:     SMTPConfig{Port: 587},
	}
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}
	if c.HTTP.ShutdownTimeout < 0 {
		return invalid("http.shutdown_timeout", "http.shutdown_timeout must not be negative")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log.level %q is not a valid level", c.Log.Level)
	}
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.Reset.CodeTTL < 0 {
		return invalid("reset.code_ttl", "reset.code_ttl must not be negative")
	}

	switch c.Reset.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return invalid("redis.addr", "redis.addr is required when reset.store is redis")
		}
		if c.Redis.DB < 0 {
			return invalid("redis.db", "redis.db must not be negative")
		}
	default:
		return invalid("reset.store", "reset.store must be 'memory' or 'redis', got %q", c.Reset.Store)
	}

	switch c.Notifier.Kind {
	case NotifierLog:
	case NotifierSMTP:
		// Not wrapped: the inner notify code would shadow CONFIG_INVALID.
		if err := c.SMTP.Notifier().Validate(); err != nil {
			return invalid("smtp", "smtp settings are invalid: %v", err)
		}
	default:
		return invalid("notifier.kind", "notifier.kind must be 'log' or 'smtp', got %q", c.Notifier.Kind)
	}
	return nil
}

// ValidateDatabase checks only the database section.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return invalid("database.url", "database.url is required (or set DATABASE_URL)")
	}
	return nil
}

// Notifier converts c to the notify package's settings.
func (c SMTPConfig) Notifier() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
	}
}

// LogValue implements slog.LogValuer with secrets redacted.
func (c Config) LogValue() slog.Value {
	redactIfSet := func(s string) string {
		if s == "" {
			return ""
		}
		return logging.Redacted
	}
	return slog.GroupValue(
		slog.String("http_addr", c.HTTP.Addr),
		slog.String("metrics_addr", c.Metrics.Addr),
		slog.String("log_format", c.Log.Format),
		slog.String("log_level", c.Log.Level),
		slog.String("database_url", redactIfSet(c.Database.URL)),
		slog.Duration("reset_code_ttl", c.Reset.CodeTTL),
		slog.String("reset_store", c.Reset.Store),
		slog.String("redis_addr", c.Redis.Addr),
		slog.String("notifier", c.Notifier.Kind),
		slog.String("smtp_host", c.SMTP.Host),
		slog.String("smtp_password", redactIfSet(c.SMTP.Password)),
	)
}
