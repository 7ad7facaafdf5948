package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARCHIVER_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and then
// applies ARCHIVER_* environment variable overrides before validating.
// An empty path loads the defaults only.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		var err error
		cfg, err = parseFile(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the format ARCHIVER_SECTION_FIELD. Values
// that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Storage overrides
	envString("STORAGE_DRIVER", &cfg.Storage.Driver)
	envString("STORAGE_PATH", &cfg.Storage.Path)
	envInt("STORAGE_MAX_OPEN_CONNS", &cfg.Storage.MaxOpenConns)
	envInt("STORAGE_MAX_IDLE_CONNS", &cfg.Storage.MaxIdleConns)
	envBool("STORAGE_WAL_MODE", &cfg.Storage.WALMode)
	envDuration("STORAGE_BUSY_TIMEOUT", &cfg.Storage.BusyTimeout)

	// Rules overrides
	envString("RULES_BACKEND", &cfg.Rules.Backend)
	envString("RULES_POSTGRES_HOST", &cfg.Rules.Postgres.Host)
	envInt("RULES_POSTGRES_PORT", &cfg.Rules.Postgres.Port)
	envString("RULES_POSTGRES_DATABASE", &cfg.Rules.Postgres.Database)
	envString("RULES_POSTGRES_USER", &cfg.Rules.Postgres.User)
	envString("RULES_POSTGRES_PASSWORD", &cfg.Rules.Postgres.Password)
	envString("RULES_POSTGRES_SSL_MODE", &cfg.Rules.Postgres.SSLMode)
	envInt("RULES_POSTGRES_MAX_CONNS", &cfg.Rules.Postgres.MaxConns)

	// Files overrides
	envString("FILES_DATA_DIR", &cfg.Files.DataDir)
	envString("FILES_ARCHIVE_FOLDER", &cfg.Files.ArchiveFolder)

	// Archive overrides
	envInt("ARCHIVE_PAGE_SIZE", &cfg.Archive.PageSize)
	envDuration("ARCHIVE_JOB_INTERVAL", &cfg.Archive.JobInterval)

	// Scheduler overrides
	envBool("SCHEDULER_ENABLED", &cfg.Scheduler.Enabled)
	envString("SCHEDULER_TICK", &cfg.Scheduler.Tick)
	envInt("SCHEDULER_MAINTENANCE_WINDOW_START", &cfg.Scheduler.MaintenanceWindowStart)
	envInt("SCHEDULER_MAINTENANCE_WINDOW_HOURS", &cfg.Scheduler.MaintenanceWindowHours)
	envDuration("SCHEDULER_RESERVATION_TIMEOUT", &cfg.Scheduler.ReservationTimeout)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
