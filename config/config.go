// Package config defines the server configuration and how it is loaded.
//
// Precedence (low -> high):
//  1. defaults (New())
//  2. YAML file, if a path is given or BONUS_CONFIG is set
//  3. env vars with the BONUS_ prefix (BONUS_ADDR, BONUS_DB_PATH, ...)
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

const envPrefix = "BONUS_"

// Config contains process configuration.
type Config struct {
	// AppEnv selects the logger flavour: "production" or anything else.
	AppEnv string `koanf:"app_env"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite file; ":memory:" keeps everything in process.
	DBPath string `koanf:"db_path"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Locale and Currency drive the formatted strings in API responses.
	Locale   string `koanf:"locale"`
	Currency string `koanf:"currency"`

	// PolicyFile optionally overrides the default compensation policy.
	PolicyFile  string `koanf:"policy_file"`
	WatchPolicy bool   `koanf:"watch_policy"`

	// CORSOrigins is a comma-separated allow list.
	CORSOrigins string `koanf:"cors_origins"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		AppEnv:      "development",
		Addr:        ":8080",
		DBPath:      "./data/bonus.db",
		LogLevel:    "info",
		Locale:      "pt-BR",
		Currency:    "BRL",
		WatchPolicy: true,
		CORSOrigins: "*",
	}
}

// Load builds a Config by layering defaults, an optional YAML file and env
// vars. An empty path falls back to BONUS_CONFIG.
func Load(path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// BONUS_DB_PATH -> db_path. Underscores are kept to match the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Currency == "" || c.Locale == "" {
		return fmt.Errorf("%w: locale and currency are required", ErrInvalidConfig)
	}
	return nil
}

// Origins splits CORSOrigins.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// NewLogger creates a zap logger: JSON in production, console otherwise,
// at the configured level.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.AppEnv == "production" {
		zc = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, cfg.LogLevel)
	}
	zc.Level = level
	return zc.Build()
}
