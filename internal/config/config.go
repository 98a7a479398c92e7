// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads runtime configuration from defaults, an optional
// YAML file, and command-line flags, in increasing precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	flag "github.com/spf13/pflag"
)

// Config holds all runtime settings.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Session: SessionConfig{
			TTL:           24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the effective configuration. Precedence, lowest to highest:
// defaults, the YAML file at path (skipped when path is empty), the
// GATEHOUSE_DATABASE_URL or DATABASE_URL environment variable, then
// explicitly-set flags.
func Load(path string, flags *flag.FlagSet) (Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_INVALID").
				With("path", path).
				Wrap(err)
		}
	}

	if url := databaseURLFromEnv(); url != "" {
		_ = k.Set("database.url", url) //nolint:errcheck // Set on a confmap never fails
	}

	if flags != nil {
		// Flags use dashes where config keys use dots: --session-ttl maps
		// to session.ttl. Only flags the user actually set override.
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *flag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagToKey(f.Name), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}
	return cfg, nil
}

func databaseURLFromEnv() string {
	if url := os.Getenv("GATEHOUSE_DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("DATABASE_URL")
}

func flagToKey(name string) string {
	switch name {
	case "database-url":
		return "database.url"
	case "session-ttl":
		return "session.ttl"
	case "sweep-interval":
		return "session.sweep_interval"
	case "log-level":
		return "log.level"
	case "log-format":
		return "log.format"
	default:
		return ""
	}
}
