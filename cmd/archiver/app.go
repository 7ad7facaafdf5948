package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/cli"
	"github.com/mdhemmi/files-archive/pkg/config"
	"github.com/mdhemmi/files-archive/pkg/filestore"
	"github.com/mdhemmi/files-archive/pkg/rules"
	"github.com/mdhemmi/files-archive/pkg/scheduler"
	"github.com/mdhemmi/files-archive/pkg/store"
	"github.com/mdhemmi/files-archive/pkg/store/postgres"
	"github.com/mdhemmi/files-archive/pkg/telemetry/logging"
	"github.com/mdhemmi/files-archive/pkg/telemetry/metrics"
)

// app is the object graph shared by the commands.
type app struct {
	cfg    *config.Config
	logger *logging.Logger

	store      *store.Store
	ruleRepo   rules.Repository
	postgres   *postgres.Repository
	workspaces *filestore.Workspaces
	scheduler  *scheduler.Scheduler
	engine     *archive.Engine
	rules      *rules.Service
	metrics    *metrics.Collector
}

// loadConfig reads --config with environment overrides. --verbose forces
// debug logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Initialize(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the slog default.
func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	slog.SetDefault(logger.Slog())
	return logger, nil
}

// newApp loads configuration and opens every store. Callers must Close the
// app.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	cfg := a.cfg

	if dir := filepath.Dir(cfg.Storage.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	st, err := store.Open(&store.Config{
		Driver:       cfg.Storage.Driver,
		Path:         cfg.Storage.Path,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
		WALMode:      cfg.Storage.WALMode,
		BusyTimeout:  cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return err
	}
	a.store = st
	a.ruleRepo = st

	if cfg.Rules.Backend == "postgres" {
		pg, err := postgres.Connect(ctx, &postgres.Config{
			Host:     cfg.Rules.Postgres.Host,
			Port:     cfg.Rules.Postgres.Port,
			User:     cfg.Rules.Postgres.User,
			Password: cfg.Rules.Postgres.Password,
			Database: cfg.Rules.Postgres.Database,
			SSLMode:  cfg.Rules.Postgres.SSLMode,
			MaxConns: int32(cfg.Rules.Postgres.MaxConns),
		})
		if err != nil {
			return err
		}
		a.postgres = pg
		a.ruleRepo = pg
	}

	a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	a.scheduler = scheduler.New(st, &scheduler.Config{
		Tick:                   cfg.Scheduler.Tick,
		MaintenanceWindowStart: cfg.Scheduler.MaintenanceWindowStart,
		MaintenanceWindowHours: cfg.Scheduler.MaintenanceWindowHours,
		ReservationTimeout:     cfg.Scheduler.ReservationTimeout,
	})
	a.scheduler.SetRecorder(a.metrics)

	a.workspaces = filestore.NewOSWorkspaces(cfg.Files.DataDir)

	a.engine, err = archive.NewEngine(archive.Dependencies{
		Catalog:    st,
		Rules:      a.ruleRepo,
		Index:      st,
		Mounts:     st,
		Workspaces: a.workspaces,
		Nodes:      filestore.NewResolver(st, a.workspaces),
		FS:         filestore.NewMover(st),
		Jobs:       a.scheduler,
		Recorder:   a.metrics,
	}, &archive.Config{
		PageSize:      cfg.Archive.PageSize,
		ArchiveFolder: cfg.Files.ArchiveFolder,
		Now:           time.Now,
	})
	if err != nil {
		return err
	}

	a.scheduler.RegisterType(archive.JobType, rules.NewArchiveJob(a.engine, a.scheduler, cfg.Archive.JobInterval))
	a.rules = rules.NewService(a.ruleRepo, st, a.scheduler, a.engine)
	return nil
}

// scanner indexes user trees into the metadata store.
func (a *app) scanner() *filestore.Scanner {
	return filestore.NewScanner(a.store, a.workspaces, store.HomeMountID)
}

// pingRules checks the rule backend for readiness.
func (a *app) pingRules(ctx context.Context) error {
	if a.postgres != nil {
		return a.postgres.Ping(ctx)
	}
	return a.store.Ping()
}

// Close releases the stores.
func (a *app) Close() error {
	var errs []error
	if a.postgres != nil {
		errs = append(errs, a.postgres.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
