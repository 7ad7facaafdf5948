package config

import "time"

// Config is the root configuration structure of the archiver.
type Config struct {
	// Server contains the HTTP listener of the rule API.
	Server ServerConfig `yaml:"server"`

	// Storage contains the sqlite metadata store holding tags, the node
	// index, mounts and the job list.
	Storage StorageConfig `yaml:"storage"`

	// Rules selects where archive rules are persisted.
	Rules RulesConfig `yaml:"rules"`

	// Files locates the per-user file trees.
	Files FilesConfig `yaml:"files"`

	// Archive tunes the archive engine and its recurring job.
	Archive ArchiveConfig `yaml:"archive"`

	// Scheduler configures the background job runner.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Synchronous sweeps triggered over the API must fit in it.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig configures the sqlite metadata store.
type StorageConfig struct {
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file.
	// Default: "data/archiver.db"
	Path string `yaml:"path"`

	// Default: 1
	MaxOpenConns int `yaml:"max_open_conns"`

	// Default: 1
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RulesConfig selects the rule store backend.
type RulesConfig struct {
	// Backend is "sqlite" (rules live next to the tags) or "postgres".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Postgres is used when Backend is "postgres".
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// SSLMode is passed to the server as sslmode.
	// Default: "require"
	SSLMode string `yaml:"ssl_mode"`

	// MaxConns limits the pool size. Zero keeps the driver default.
	MaxConns int `yaml:"max_conns"`
}

// FilesConfig locates the user file trees.
type FilesConfig struct {
	// DataDir holds one "<user>/files" tree per user.
	// Default: "data/files"
	DataDir string `yaml:"data_dir"`

	// ArchiveFolder is the name of the per-user archive folder.
	// Default: ".archive"
	ArchiveFolder string `yaml:"archive_folder"`
}

// ArchiveConfig tunes the archive engine.
type ArchiveConfig struct {
	// PageSize is the number of tagged objects fetched per page.
	// Default: 1000
	PageSize int `yaml:"page_size"`

	// JobInterval is the minimum time between two runs of a rule's job.
	// Default: 24h
	JobInterval time.Duration `yaml:"job_interval"`
}

// SchedulerConfig configures the background job runner.
type SchedulerConfig struct {
	// Enabled starts the scheduler with the "run" command.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Tick is the cron spec at which due jobs are looked up.
	// Default: "@every 5m"
	Tick string `yaml:"tick"`

	// MaintenanceWindowStart is the UTC hour time-insensitive jobs may
	// start at. Negative lets them run at any time.
	// Default: -1
	MaintenanceWindowStart int `yaml:"maintenance_window_start"`

	// MaintenanceWindowHours is the window length.
	// Default: 6
	MaintenanceWindowHours int `yaml:"maintenance_window_hours"`

	// ReservationTimeout releases reservations of crashed runs.
	// Default: 12h
	ReservationTimeout time.Duration `yaml:"reservation_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus configuration.
type MetricsConfig struct {
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "archiver"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry configuration.
type TracingConfig struct {
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of sweeps traced (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as service.name.
	// Default: "archiver"
	ServiceName string `yaml:"service_name"`
}
