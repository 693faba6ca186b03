package config_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/querygate/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %s, want 0.0.0.0:8080", cfg.Server.Addr())
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.Server.RequestTimeout)
	}
	if cfg.Database.Driver != config.DriverSQLite {
		t.Errorf("Database.Driver = %s, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "querygate.db" {
		t.Errorf("Database.DSN = %s, want querygate.db", cfg.Database.DSN)
	}
	if !cfg.Database.AutoMigrate {
		t.Error("Database.AutoMigrate should default to true")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v, want enabled on /metrics", cfg.Metrics)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
	if cfg.MCP.Name != "querygate" {
		t.Errorf("MCP.Name = %s, want querygate", cfg.MCP.Name)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
  request_timeout: 5s
  cors_origins:
    - http://localhost:3000
database:
  driver: sqlite
  dsn: /tmp/blog.db
  auto_migrate: false
catalog:
  dir: ./catalog
logging:
  level: debug
  format: console
metrics:
  enabled: false
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %s, want 127.0.0.1:9090", cfg.Server.Addr())
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.Server.RequestTimeout)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Database.DSN != "/tmp/blog.db" {
		t.Errorf("Database.DSN = %s, want /tmp/blog.db", cfg.Database.DSN)
	}
	if cfg.Database.AutoMigrate {
		t.Error("Database.AutoMigrate = true, want false")
	}
	if cfg.Catalog.Dir != "./catalog" {
		t.Errorf("Catalog.Dir = %s, want ./catalog", cfg.Catalog.Dir)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v, want debug/console", cfg.Logging)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
	// Unset fields keep their defaults.
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %s, want /metrics", cfg.Metrics.Path)
	}
}

func TestLoad_ExpandEnv(t *testing.T) {
	t.Setenv("BLOG_DB", "/var/lib/blog.db")
	path := writeConfig(t, `
database:
  dsn: ${BLOG_DB}
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Database.DSN != "/var/lib/blog.db" {
		t.Errorf("Database.DSN = %s, want /var/lib/blog.db", cfg.Database.DSN)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QUERYGATE_SERVER_PORT", "7000")
	t.Setenv("QUERYGATE_LOG_LEVEL", "warn")
	t.Setenv("QUERYGATE_CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("QUERYGATE_DATABASE_AUTO_MIGRATE", "no")

	cfg, err := config.Load(writeConfig(t, validConfig()))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %s, want warn", cfg.Logging.Level)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, "|"); got != "http://a.test|http://b.test" {
		t.Errorf("CORSOrigins = %s", got)
	}
	if cfg.Database.AutoMigrate {
		t.Error("Database.AutoMigrate = true, want false")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "server: [", "parse config"},
		{"port out of range", "server:\n  port: 70000\n", "server.port"},
		{"unknown driver", "database:\n  driver: postgres\n", "database.driver"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad metrics path", "metrics:\n  path: metrics\n", "metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Setenv("QUERYGATE_DATABASE_DRIVER", "memory")
	t.Setenv("QUERYGATE_FIXTURES_DIR", "/srv/fixtures")

	cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Database.Driver != config.DriverMemory {
		t.Errorf("Database.Driver = %s, want memory", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "" {
		t.Errorf("Database.DSN = %q, want empty for memory driver", cfg.Database.DSN)
	}
	if cfg.Fixtures.Dir != "/srv/fixtures" {
		t.Errorf("Fixtures.Dir = %s, want /srv/fixtures", cfg.Fixtures.Dir)
	}
}
