package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Storage defaults
	DefaultStorageDriver       = "sqlite"
	DefaultStoragePath         = "data/archiver.db"
	DefaultStorageMaxOpenConns = 1
	DefaultStorageMaxIdleConns = 1
	DefaultStorageWALMode      = true
	DefaultStorageBusyTimeout  = 5 * time.Second

	// Rules defaults
	DefaultRulesBackend     = "sqlite"
	DefaultPostgresPort     = 5432
	DefaultPostgresSSLMode  = "require"
	DefaultPostgresDatabase = "archiver"

	// Files defaults
	DefaultDataDir       = "data/files"
	DefaultArchiveFolder = ".archive"

	// Archive defaults
	DefaultPageSize    = 1000
	DefaultJobInterval = 24 * time.Hour

	// Scheduler defaults
	DefaultSchedulerEnabled       = true
	DefaultSchedulerTick          = "@every 5m"
	DefaultMaintenanceWindowStart = -1
	DefaultMaintenanceWindowHours = 6
	DefaultReservationTimeout     = 12 * time.Hour

	// Telemetry defaults
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "archiver"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingInsecure    = true
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "archiver"
)

// DefaultConfig returns a configuration with every field at its default.
// YAML documents are decoded on top of it, so booleans that default to true
// can still be switched off in a file.
func DefaultConfig() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			WALMode: DefaultStorageWALMode,
		},
		Scheduler: SchedulerConfig{
			Enabled:                DefaultSchedulerEnabled,
			MaintenanceWindowStart: DefaultMaintenanceWindowStart,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{Insecure: DefaultTracingInsecure},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field that has a non-zero default.
// Booleans and the maintenance window start are left alone since their zero
// values are meaningful; DefaultConfig seeds those.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyRulesDefaults(&cfg.Rules)

	if cfg.Files.DataDir == "" {
		cfg.Files.DataDir = DefaultDataDir
	}
	if cfg.Files.ArchiveFolder == "" {
		cfg.Files.ArchiveFolder = DefaultArchiveFolder
	}

	if cfg.Archive.PageSize == 0 {
		cfg.Archive.PageSize = DefaultPageSize
	}
	if cfg.Archive.JobInterval == 0 {
		cfg.Archive.JobInterval = DefaultJobInterval
	}

	if cfg.Scheduler.Tick == "" {
		cfg.Scheduler.Tick = DefaultSchedulerTick
	}
	if cfg.Scheduler.MaintenanceWindowHours == 0 {
		cfg.Scheduler.MaintenanceWindowHours = DefaultMaintenanceWindowHours
	}
	if cfg.Scheduler.ReservationTimeout == 0 {
		cfg.Scheduler.ReservationTimeout = DefaultReservationTimeout
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyStorageDefaults(s *StorageConfig) {
	if s.Driver == "" {
		s.Driver = DefaultStorageDriver
	}
	if s.Path == "" {
		s.Path = DefaultStoragePath
	}
	if s.MaxOpenConns == 0 {
		s.MaxOpenConns = DefaultStorageMaxOpenConns
	}
	if s.MaxIdleConns == 0 {
		s.MaxIdleConns = DefaultStorageMaxIdleConns
	}
	if s.BusyTimeout == 0 {
		s.BusyTimeout = DefaultStorageBusyTimeout
	}
}

func applyRulesDefaults(r *RulesConfig) {
	if r.Backend == "" {
		r.Backend = DefaultRulesBackend
	}
	if r.Postgres.Port == 0 {
		r.Postgres.Port = DefaultPostgresPort
	}
	if r.Postgres.SSLMode == "" {
		r.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if r.Postgres.Database == "" {
		r.Postgres.Database = DefaultPostgresDatabase
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
}
