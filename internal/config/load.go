// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/accounts/internal/xdg"
)

// FlagConfig is the flag naming an explicit config file.
const FlagConfig = "config"

// EnvDatabaseURL overrides database.url from the config file.
const EnvDatabaseURL = "DATABASE_URL"

// RegisterFlags adds one flag per config key to fs. Flag names equal the keys.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String(FlagConfig, "", "config file (default: $XDG_CONFIG_HOME/accounts/config.yaml)")
	fs.String("http.addr", d.HTTP.Addr, "HTTP API listen address")
	fs.Duration("http.shutdown_timeout", d.HTTP.ShutdownTimeout, "graceful shutdown timeout")
	fs.String("metrics.addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log.format", d.Log.Format, "log format (json or text)")
	fs.String("log.level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("database.url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	fs.Duration("reset.code_ttl", d.Reset.CodeTTL, "reset code lifetime (0 = never expires)")
	fs.String("reset.store", d.Reset.Store, "reset code store (memory or redis)")
	fs.String("redis.addr", d.Redis.Addr, "redis address")
	fs.String("redis.password", "", "redis password")
	fs.Int("redis.db", d.Redis.DB, "redis database number")
	fs.String("notifier.kind", d.Notifier.Kind, "reset code delivery (log or smtp)")
	fs.String("smtp.host", "", "SMTP relay host")
	fs.Int("smtp.port", d.SMTP.Port, "SMTP relay port")
	fs.String("smtp.username", "", "SMTP username")
	fs.String("smtp.password", "", "SMTP password")
	fs.String("smtp.from", "", "sender address for reset emails")
}

// LoadDotEnv loads environment variables from files, ".env" when none are
// given. Missing files are skipped and existing variables are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return oops.Code("CONFIG_DOTENV_FAILED").With("file", f).Wrap(err)
		}
	}
	return nil
}

// Load builds the configuration from flags registered with RegisterFlags.
// Precedence, lowest first: flag defaults, config file, DATABASE_URL,
// explicitly set flags. The result is validated.
func Load(flags *pflag.FlagSet) (*Config, error) {
	cfg, err := load(flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase builds the configuration like Load but validates only the
// database section. Schema migrations need nothing else.
func LoadDatabase(flags *pflag.FlagSet) (*Config, error) {
	cfg, err := load(flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, explicit := configPath(flags); path != "" {
		if err := loadFile(k, path, explicit); err != nil {
			return nil, err
		}
	}

	if url := os.Getenv(EnvDatabaseURL); url != "" {
		if err := k.Set("database.url", url); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
		}
	}

	// Unchanged flags only fill keys that are still missing.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "unmarshal").Wrap(err)
	}
	return &cfg, nil
}

// configPath returns the file to read and whether the user named it.
// Without a home directory there is no default file.
func configPath(flags *pflag.FlagSet) (string, bool) {
	if f := flags.Lookup(FlagConfig); f != nil && f.Changed {
		return f.Value.String(), true
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		return "", false
	}
	return path, false
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return oops.Code("CONFIG_FILE_UNREADABLE").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
	}
	return nil
}
