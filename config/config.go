// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Fixtures FixturesConfig `yaml:"fixtures"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	MCP      MCPConfig      `yaml:"mcp"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // per-request deadline, store reads included
	CORSOrigins    []string      `yaml:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the store the entities are read from.
type DatabaseConfig struct {
	Driver      string        `yaml:"driver"` // "sqlite" or "memory"
	DSN         string        `yaml:"dsn"`
	Migrations  string        `yaml:"migrations"`   // directory of per-namespace migrations
	AutoMigrate bool          `yaml:"auto_migrate"` // create tables and apply migrations at startup
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// CatalogConfig locates the entity definitions.
type CatalogConfig struct {
	Dir string `yaml:"dir"` // empty serves the embedded demo catalog
}

// FixturesConfig locates records loaded into the memory store.
type FixturesConfig struct {
	Dir string `yaml:"dir"` // empty loads the embedded demo fixtures
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	cfg := Config{
		Database: DatabaseConfig{AutoMigrate: true},
		Metrics:  MetricsConfig{Enabled: true},
	}
	setDefaults(&cfg)
	return cfg
}

// Load reads configuration from a YAML file. Values missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration from defaults and environment variables.
//
// Environment variables:
//
//	QUERYGATE_SERVER_HOST           - Server host (default: 0.0.0.0)
//	QUERYGATE_SERVER_PORT           - Server port (default: 8080)
//	QUERYGATE_SERVER_REQUEST_TIMEOUT - Per-request deadline (default: 30s)
//	QUERYGATE_CORS_ORIGINS          - Comma-separated allowed origins
//	QUERYGATE_DATABASE_DRIVER       - sqlite or memory (default: sqlite)
//	QUERYGATE_DATABASE_DSN          - Database path (default: querygate.db)
//	QUERYGATE_DATABASE_MIGRATIONS   - Migrations directory
//	QUERYGATE_DATABASE_AUTO_MIGRATE - Create tables and migrate at startup (default: true)
//	QUERYGATE_CATALOG_DIR           - Entity definitions directory
//	QUERYGATE_FIXTURES_DIR          - Fixtures directory for the memory driver
//	QUERYGATE_LOG_LEVEL             - Log level: debug, info, warn, error (default: info)
//	QUERYGATE_LOG_FORMAT            - Log format: json or console (default: json)
//	QUERYGATE_METRICS_ENABLED       - Enable /metrics endpoint (default: true)
//	QUERYGATE_METRICS_PATH          - Metrics path (default: /metrics)
func LoadFromEnv() (*Config, error) {
	cfg := Default()

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies QUERYGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("QUERYGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("QUERYGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QUERYGATE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("QUERYGATE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if v := os.Getenv("QUERYGATE_SERVER_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if v := os.Getenv("QUERYGATE_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	// Database configuration
	if v := os.Getenv("QUERYGATE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("QUERYGATE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("QUERYGATE_DATABASE_MIGRATIONS"); v != "" {
		cfg.Database.Migrations = v
	}
	if v := os.Getenv("QUERYGATE_DATABASE_AUTO_MIGRATE"); v != "" {
		cfg.Database.AutoMigrate = parseBool(v)
	}

	// Catalog and fixtures
	if v := os.Getenv("QUERYGATE_CATALOG_DIR"); v != "" {
		cfg.Catalog.Dir = v
	}
	if v := os.Getenv("QUERYGATE_FIXTURES_DIR"); v != "" {
		cfg.Fixtures.Dir = v
	}

	// Logging configuration
	if v := os.Getenv("QUERYGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QUERYGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("QUERYGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("QUERYGATE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == DriverSQLite {
		cfg.Database.DSN = "querygate.db"
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = 5 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.MCP.Name == "" {
		cfg.MCP.Name = "querygate"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case DriverSQLite:
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be 'sqlite' or 'memory', got %q", cfg.Database.Driver)
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}
