// Package config loads the server's startup configuration from YAML with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort            = 8080
	defaultDatabaseURL     = "file:vengrow.db"
	defaultEnv             = "development"
	defaultLogLevel        = "info"
	defaultBusBuffer       = 256
	defaultShutdownTimeout = 10 * time.Second
	defaultSessionMaxAge   = 24 * time.Hour
	defaultSessionIdle     = 30 * time.Minute
)

// AppConfig holds runtime startup configuration.
type AppConfig struct {
	Port            int           `yaml:"port"`
	DatabaseURL     string        `yaml:"database_url"`
	Env             string        `yaml:"env"` // "development" | "production"
	LogLevel        string        `yaml:"log_level"`
	LenientOptions  bool          `yaml:"lenient_options"`
	SeedTemplates   bool          `yaml:"seed_templates"`
	BusBuffer       int           `yaml:"bus_buffer"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Sessions        SessionConfig `yaml:"sessions"`
}

// SessionConfig bounds live form sessions.
type SessionConfig struct {
	MaxAge time.Duration `yaml:"max_age"`
	Idle   time.Duration `yaml:"idle"`
}

// rawAppConfig uses pointers so an explicit false or zero in the file can be
// told apart from an omitted key.
type rawAppConfig struct {
	Port            *int             `yaml:"port"`
	DatabaseURL     string           `yaml:"database_url"`
	Env             string           `yaml:"env"`
	LogLevel        string           `yaml:"log_level"`
	LenientOptions  *bool            `yaml:"lenient_options"`
	SeedTemplates   *bool            `yaml:"seed_templates"`
	BusBuffer       *int             `yaml:"bus_buffer"`
	ShutdownTimeout *time.Duration   `yaml:"shutdown_timeout"`
	Sessions        rawSessionConfig `yaml:"sessions"`
}

type rawSessionConfig struct {
	MaxAge *time.Duration `yaml:"max_age"`
	Idle   *time.Duration `yaml:"idle"`
}

// Load reads configPath, applies PORT, DATABASE_URL and APP_ENV from the
// environment and validates the result. A missing file yields the defaults.
func Load(configPath string) (*AppConfig, error) {
	return load(configPath, os.LookupEnv)
}

func load(configPath string, lookup func(string) (string, bool)) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	default:
		raw, err := decode(content)
		if err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
		applyRawAppConfig(&cfg, raw)
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}

func decode(content []byte) (rawAppConfig, error) {
	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) == 0 {
		return raw, nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return raw, err
	}
	return raw, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:            defaultPort,
		DatabaseURL:     defaultDatabaseURL,
		Env:             defaultEnv,
		LogLevel:        defaultLogLevel,
		SeedTemplates:   true,
		BusBuffer:       defaultBusBuffer,
		ShutdownTimeout: defaultShutdownTimeout,
		Sessions: SessionConfig{
			MaxAge: defaultSessionMaxAge,
			Idle:   defaultSessionIdle,
		},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != nil {
		cfg.Port = *raw.Port
	}
	if v := strings.TrimSpace(raw.DatabaseURL); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	if raw.LenientOptions != nil {
		cfg.LenientOptions = *raw.LenientOptions
	}
	if raw.SeedTemplates != nil {
		cfg.SeedTemplates = *raw.SeedTemplates
	}
	if raw.BusBuffer != nil {
		cfg.BusBuffer = *raw.BusBuffer
	}
	if raw.ShutdownTimeout != nil {
		cfg.ShutdownTimeout = *raw.ShutdownTimeout
	}
	if raw.Sessions.MaxAge != nil {
		cfg.Sessions.MaxAge = *raw.Sessions.MaxAge
	}
	if raw.Sessions.Idle != nil {
		cfg.Sessions.Idle = *raw.Sessions.Idle
	}
}

func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v, ok := lookup("DATABASE_URL"); ok && strings.TrimSpace(v) != "" {
		cfg.DatabaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("APP_ENV"); ok && strings.TrimSpace(v) != "" {
		cfg.Env = v
	}
	return nil
}

// Validate reports the first out-of-range setting.
func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	switch c.Env {
	case "development", "production":
	default:
		return fmt.Errorf("invalid env %q, expected development or production", c.Env)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.BusBuffer < 1 {
		return fmt.Errorf("invalid bus_buffer %d, expected >= 1", c.BusBuffer)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown_timeout %s", c.ShutdownTimeout)
	}
	if c.Sessions.MaxAge <= 0 || c.Sessions.Idle <= 0 {
		return errors.New("sessions.max_age and sessions.idle must be positive")
	}
	return nil
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	switch trimmed {
	case "":
		return defaultEnv
	case "dev":
		return "development"
	case "prod":
		return "production"
	}
	return trimmed
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

// Addr is the listen address for the HTTP server.
func (c *AppConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
