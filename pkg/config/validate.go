package config

import (
	"fmt"
	"net"
	"path"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateFiles(&cfg.Files)...)
	errs = append(errs, validateArchive(&cfg.Archive)...)
	errs = append(errs, validateScheduler(&cfg.Scheduler)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address: %v", err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}

	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Driver {
	case "sqlite", "sqlite3":
	default:
		errs = append(errs, FieldError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("unsupported driver %q (must be sqlite or sqlite3)", cfg.Driver),
		})
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "storage.path", Message: "database path is required"})
	}
	if cfg.MaxOpenConns < 1 {
		errs = append(errs, FieldError{Field: "storage.max_open_conns", Message: "must be at least 1"})
	}
	if cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{Field: "storage.max_idle_conns", Message: "must be non-negative"})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{Field: "storage.busy_timeout", Message: "busy timeout must be positive"})
	}

	return errs
}

func validateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite":
	case "postgres":
		pg := &cfg.Postgres
		if pg.Host == "" {
			errs = append(errs, FieldError{Field: "rules.postgres.host", Message: "host is required for the postgres backend"})
		}
		if pg.Port < 1 || pg.Port > 65535 {
			errs = append(errs, FieldError{Field: "rules.postgres.port", Message: "port must be between 1 and 65535"})
		}
		if pg.Database == "" {
			errs = append(errs, FieldError{Field: "rules.postgres.database", Message: "database is required"})
		}
		if pg.User == "" {
			errs = append(errs, FieldError{Field: "rules.postgres.user", Message: "user is required"})
		}
		switch pg.SSLMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			errs = append(errs, FieldError{
				Field:   "rules.postgres.ssl_mode",
				Message: fmt.Sprintf("invalid ssl mode %q", pg.SSLMode),
			})
		}
		if pg.MaxConns < 0 {
			errs = append(errs, FieldError{Field: "rules.postgres.max_conns", Message: "must be non-negative"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "rules.backend",
			Message: fmt.Sprintf("unsupported backend %q (must be sqlite or postgres)", cfg.Backend),
		})
	}

	return errs
}

func validateFiles(cfg *FilesConfig) []FieldError {
	var errs []FieldError

	if cfg.DataDir == "" {
		errs = append(errs, FieldError{Field: "files.data_dir", Message: "data directory is required"})
	}
	name := cfg.ArchiveFolder
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || path.Clean(name) != name {
		errs = append(errs, FieldError{
			Field:   "files.archive_folder",
			Message: fmt.Sprintf("archive folder %q must be a single path element", name),
		})
	}

	return errs
}

func validateArchive(cfg *ArchiveConfig) []FieldError {
	var errs []FieldError

	if cfg.PageSize < 1 {
		errs = append(errs, FieldError{Field: "archive.page_size", Message: "page size must be at least 1"})
	}
	if cfg.JobInterval <= 0 {
		errs = append(errs, FieldError{Field: "archive.job_interval", Message: "job interval must be positive"})
	}

	return errs
}

func validateScheduler(cfg *SchedulerConfig) []FieldError {
	var errs []FieldError

	if _, err := cron.ParseStandard(cfg.Tick); err != nil {
		errs = append(errs, FieldError{
			Field:   "scheduler.tick",
			Message: fmt.Sprintf("invalid cron spec %q: %v", cfg.Tick, err),
		})
	}
	if cfg.MaintenanceWindowStart > 23 {
		errs = append(errs, FieldError{
			Field:   "scheduler.maintenance_window_start",
			Message: "start hour must be between 0 and 23 (negative disables the window)",
		})
	}
	if cfg.MaintenanceWindowHours < 1 || cfg.MaintenanceWindowHours > 24 {
		errs = append(errs, FieldError{
			Field:   "scheduler.maintenance_window_hours",
			Message: "window length must be between 1 and 24 hours",
		})
	}
	if cfg.ReservationTimeout <= 0 {
		errs = append(errs, FieldError{Field: "scheduler.reservation_timeout", Message: "reservation timeout must be positive"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json, text or console)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with /"})
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}

	return errs
}
