package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archiver.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}

	if cfg.Archive.PageSize != 1000 {
		t.Errorf("Expected page size 1000, got %d", cfg.Archive.PageSize)
	}
	if cfg.Files.ArchiveFolder != ".archive" {
		t.Errorf("Expected archive folder .archive, got %q", cfg.Files.ArchiveFolder)
	}
	if cfg.Scheduler.MaintenanceWindowStart != -1 {
		t.Errorf("Expected disabled maintenance window, got %d", cfg.Scheduler.MaintenanceWindowStart)
	}
	if !cfg.Storage.WALMode || !cfg.Scheduler.Enabled || !cfg.Telemetry.Metrics.Enabled {
		t.Error("Expected boolean defaults to be true")
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9000"
  read_timeout: "10s"
storage:
  path: "/var/lib/archiver/meta.db"
  wal_mode: false
rules:
  backend: postgres
  postgres:
    host: db.internal
    user: archiver
    ssl_mode: disable
archive:
  page_size: 50
  job_interval: 1h
scheduler:
  enabled: false
  maintenance_window_start: 0
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("Expected listen address 0.0.0.0:9000, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Expected read timeout 10s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("Expected default write timeout, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Storage.WALMode {
		t.Error("Expected wal_mode false from file to stick")
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Expected default driver sqlite, got %q", cfg.Storage.Driver)
	}
	if cfg.Rules.Postgres.Port != 5432 {
		t.Errorf("Expected default postgres port, got %d", cfg.Rules.Postgres.Port)
	}
	if cfg.Archive.PageSize != 50 || cfg.Archive.JobInterval != time.Hour {
		t.Errorf("Unexpected archive section %+v", cfg.Archive)
	}
	if cfg.Scheduler.Enabled {
		t.Error("Expected scheduler disabled")
	}
	if cfg.Scheduler.MaintenanceWindowStart != 0 {
		t.Errorf("Expected explicit window start 0, got %d", cfg.Scheduler.MaintenanceWindowStart)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Expected level debug, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := writeConfig(t, "server: [not, a, map")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}

	path = writeConfig(t, `
rules:
  backend: mysql
archive:
  page_size: -1
`)
	_, err := LoadConfig(path)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("Expected 2 field errors, got %d: %v", len(verr.Errors), verr)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8090"
`)

	t.Setenv("ARCHIVER_SERVER_LISTEN_ADDRESS", "0.0.0.0:7000")
	t.Setenv("ARCHIVER_ARCHIVE_PAGE_SIZE", "25")
	t.Setenv("ARCHIVER_ARCHIVE_JOB_INTERVAL", "2h")
	t.Setenv("ARCHIVER_SCHEDULER_ENABLED", "false")
	t.Setenv("ARCHIVER_TELEMETRY_TRACING_SAMPLE_RATIO", "0.5")
	t.Setenv("ARCHIVER_STORAGE_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7000" {
		t.Errorf("Expected env listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Archive.PageSize != 25 {
		t.Errorf("Expected page size 25, got %d", cfg.Archive.PageSize)
	}
	if cfg.Archive.JobInterval != 2*time.Hour {
		t.Errorf("Expected job interval 2h, got %v", cfg.Archive.JobInterval)
	}
	if cfg.Scheduler.Enabled {
		t.Error("Expected scheduler disabled by env")
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("Expected sample ratio 0.5, got %v", cfg.Telemetry.Tracing.SampleRatio)
	}
	if cfg.Storage.MaxOpenConns != DefaultStorageMaxOpenConns {
		t.Errorf("Expected unparsable override to be ignored, got %d", cfg.Storage.MaxOpenConns)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("ARCHIVER_FILES_DATA_DIR", "/srv/files")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Files.DataDir != "/srv/files" {
		t.Errorf("Expected data dir from env, got %q", cfg.Files.DataDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad listen address", func(c *Config) { c.Server.ListenAddress = "localhost" }, "server.listen_address"},
		{"bad driver", func(c *Config) { c.Storage.Driver = "bolt" }, "storage.driver"},
		{"postgres without host", func(c *Config) { c.Rules.Backend = "postgres"; c.Rules.Postgres.User = "u" }, "rules.postgres.host"},
		{"nested archive folder", func(c *Config) { c.Files.ArchiveFolder = "a/b" }, "files.archive_folder"},
		{"dot archive folder", func(c *Config) { c.Files.ArchiveFolder = ".." }, "files.archive_folder"},
		{"zero job interval", func(c *Config) { c.Archive.JobInterval = 0 }, "archive.job_interval"},
		{"bad tick", func(c *Config) { c.Scheduler.Tick = "every now and then" }, "scheduler.tick"},
		{"window start", func(c *Config) { c.Scheduler.MaintenanceWindowStart = 24 }, "scheduler.maintenance_window_start"},
		{"window hours", func(c *Config) { c.Scheduler.MaintenanceWindowHours = 25 }, "scheduler.maintenance_window_hours"},
		{"log level", func(c *Config) { c.Telemetry.Logging.Level = "trace" }, "telemetry.logging.level"},
		{"sample ratio", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 }, "telemetry.tracing.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected error on %s, got %v", tt.field, verr)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if single.Error() != "configuration validation failed: a: bad" {
		t.Errorf("Unexpected message %q", single.Error())
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if !strings.Contains(multi.Error(), "2 errors") {
		t.Errorf("Expected error count in %q", multi.Error())
	}
}

func TestInitializeAndGetConfig(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	cfg, err := Initialize("")
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if GetConfig() != cfg {
		t.Error("Expected GetConfig to return the initialized config")
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	path := writeConfig(t, "telemetry:\n  logging:\n    level: info\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.interval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, func(c *Config) { reloaded <- c }) }()

	// Give the watch loop a moment to start draining events.
	time.Sleep(50 * time.Millisecond)

	// An invalid document is dropped.
	if err := os.WriteFile(path, []byte("telemetry:\n  logging:\n    level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(250 * time.Millisecond)
	select {
	case c := <-reloaded:
		t.Fatalf("Expected invalid config to be dropped, got level %q", c.Telemetry.Logging.Level)
	default:
	}

	if err := os.WriteFile(path, []byte("telemetry:\n  logging:\n    level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-reloaded:
		if c.Telemetry.Logging.Level != "debug" {
			t.Errorf("Expected reloaded level debug, got %q", c.Telemetry.Logging.Level)
		}
		if GetConfig() != c {
			t.Error("Expected reload to replace the process configuration")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned error: %v", err)
	}
}
