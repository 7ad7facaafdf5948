package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdhemmi/files-archive/pkg/api"
	"github.com/mdhemmi/files-archive/pkg/cli"
	"github.com/mdhemmi/files-archive/pkg/config"
	"github.com/mdhemmi/files-archive/pkg/server"
	"github.com/mdhemmi/files-archive/pkg/telemetry/health"
	"github.com/mdhemmi/files-archive/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	noScheduler   bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the rule API and the job scheduler",
	Long: `Start the HTTP API for archive rules and system tags together with the
scheduler that runs each rule's archive job.

The configuration file is watched; a changed log level applies without a
restart.

Examples:
  # Start with defaults
  archiver run

  # Start with a config file and a different listen address
  archiver run --config /etc/archiver/config.yaml --listen 0.0.0.0:8090

  # API only, no archive jobs
  archiver run --no-scheduler

  # Validate config without starting
  archiver run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.noScheduler, "no-scheduler", false, "do not run archive jobs")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runServer(cmd *cobra.Command, args []string) error {
	if runFlags.dryRun {
		if _, err := loadConfig(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		if err := a.logger.SetLevel(runFlags.logLevel); err != nil {
			return cli.NewConfigError("--log-level", err)
		}
	}

	slog.Info("starting archiver",
		"version", Version,
		"config", cfgFile,
		"rules_backend", cfg.Rules.Backend,
		"data_dir", cfg.Files.DataDir,
	)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	checker := health.New(2 * time.Second)
	checker.RegisterCheck("store", func(context.Context) error { return a.store.Ping() })
	checker.RegisterCheck("rules", a.pingRules)

	opts := api.Options{
		Logger:    slog.Default(),
		Liveness:  checker.LivenessHandler(),
		Readiness: checker.ReadinessHandler(),
		Version:   health.VersionHandler(Version, GitCommit, BuildDate),
	}
	if cfg.Telemetry.Metrics.Enabled {
		opts.Metrics = a.metrics
		opts.MetricsPath = cfg.Telemetry.Metrics.Path
		opts.MetricsHandler = a.metrics.Handler()
	}
	srv := server.New(&cfg.Server, api.NewRouter(a.rules, a.store, opts))

	if cfg.Scheduler.Enabled && !runFlags.noScheduler {
		if err := a.scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer a.scheduler.Stop()
	} else {
		slog.Info("scheduler disabled; archive jobs run only through the API")
	}

	if cfgFile != "" {
		go watchConfig(ctx, a)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s\n", cfg.Server.ListenAddress)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

// watchConfig applies log level changes from the config file until ctx is
// done. Other settings need a restart.
func watchConfig(ctx context.Context, a *app) {
	w, err := config.NewWatcher(cfgFile, slog.Default())
	if err != nil {
		slog.Warn("config watcher unavailable", "error", err)
		return
	}
	err = w.Watch(ctx, func(cfg *config.Config) {
		level := cfg.Telemetry.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := a.logger.SetLevel(level); err != nil {
			slog.Warn("ignoring reloaded log level", "level", level, "error", err)
		}
	})
	if err != nil {
		slog.Error("config watcher stopped", "error", err)
	}
}
