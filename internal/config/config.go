// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads accountd configuration.
//
// Values are layered: flag defaults, then the YAML config file, then the
// DATABASE_URL environment variable, then flags set explicitly on the
// command line.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/accountd/internal/logging"
	"github.com/holomush/accountd/internal/xdg"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseURLEnv names the environment variable that overrides
// storage.database_url.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the full accountd configuration.
type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Storage StorageConfig `koanf:"storage"`
	Session SessionConfig `koanf:"session"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the metrics and health listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver         string        `koanf:"driver"`
	DatabaseURL    string        `koanf:"database_url"`
	AutoMigrate    bool          `koanf:"auto_migrate"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// SessionConfig configures HTTP sessions.
type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	CookieName    string        `koanf:"cookie_name"`
	SecureCookie  bool          `koanf:"secure_cookie"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP:    HTTPConfig{Addr: "127.0.0.1:8080"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Storage: StorageConfig{
			Driver:         DriverPostgres,
			AutoMigrate:    false,
			ConnectTimeout: 30 * time.Second,
		},
		Session: SessionConfig{
			TTL:           30 * time.Minute,
			CookieName:    "ACCOUNTD_SESSION",
			SecureCookie:  true,
			SweepInterval: 5 * time.Minute,
		},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"http-addr":              "http.addr",
	"metrics-addr":           "metrics.addr",
	"log-format":             "log.format",
	"log-level":              "log.level",
	"storage-driver":         "storage.driver",
	"database-url":           "storage.database_url",
	"auto-migrate":           "storage.auto_migrate",
	"connect-timeout":        "storage.connect_timeout",
	"session-ttl":            "session.ttl",
	"session-cookie":         "session.cookie_name",
	"secure-cookie":          "session.secure_cookie",
	"session-sweep-interval": "session.sweep_interval",
}

// RegisterFlags adds the server flags to fs with the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "API listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("storage-driver", d.Storage.Driver, "storage backend (postgres or memory)")
	fs.String("database-url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	fs.Bool("auto-migrate", d.Storage.AutoMigrate, "apply pending migrations on startup")
	fs.Duration("connect-timeout", d.Storage.ConnectTimeout, "how long to keep retrying the database at startup")
	fs.Duration("session-ttl", d.Session.TTL, "idle session lifetime")
	fs.String("session-cookie", d.Session.CookieName, "session cookie name")
	fs.Bool("secure-cookie", d.Session.SecureCookie, "mark the session cookie Secure")
	fs.Duration("session-sweep-interval", d.Session.SweepInterval, "expired session sweep interval")
}

// Loader builds a Config from its sources.
type Loader struct {
	// Path is the config file. When empty the XDG default is used if it
	// exists.
	Path string
	// Flags holds flags registered with RegisterFlags. May be nil.
	Flags *pflag.FlagSet
	// Getenv reads environment variables. Defaults to os.Getenv.
	Getenv func(string) string
}

// Load reads every source, applies precedence and validates the result.
func (l Loader) Load() (*Config, error) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	k := koanf.New(".")

	path, explicit := l.Path, l.Path != ""
	if !explicit {
		path = xdg.ConfigFile()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrapf(err, "load config file")
		}
	}

	if url := getenv(DatabaseURLEnv); url != "" {
		if err := k.Set("storage.database_url", url); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "apply %s", DatabaseURLEnv)
		}
	}

	if l.Flags != nil {
		provider := posflag.ProviderWithFlag(l.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(l.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return invalid("storage.database_url",
				"storage.database_url (or %s) is required for the postgres driver", DatabaseURLEnv)
		}
		if c.Storage.ConnectTimeout <= 0 {
			return invalid("storage.connect_timeout", "storage.connect_timeout must be positive")
		}
	default:
		return invalid("storage.driver", "storage.driver must be %q or %q, got %q",
			DriverPostgres, DriverMemory, c.Storage.Driver)
	}

	if c.Session.TTL <= 0 {
		return invalid("session.ttl", "session.ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return invalid("session.sweep_interval", "session.sweep_interval must be positive")
	}
	if !validCookieName(c.Session.CookieName) {
		return invalid("session.cookie_name", "session.cookie_name %q is not a valid cookie name", c.Session.CookieName)
	}
	return nil
}

// validCookieName reports whether name is an RFC 6265 token.
func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune(`()<>@,;:\"/[]?={}`, r) {
			return false
		}
	}
	return true
}
