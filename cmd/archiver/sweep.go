package main

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/cli"
	"github.com/mdhemmi/files-archive/pkg/telemetry/tracing"
)

var sweepFlags struct {
	tag    string
	output string
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one archive sweep for a tag",
	Long: `Run the archive engine once for the rule bound to --tag, the same way
the scheduled job does. A tag or rule that no longer exists removes the
tag's scheduled job.

Examples:
  archiver sweep --tag 12
  archiver sweep --tag 12 --output json`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVarP(&sweepFlags.tag, "tag", "t", "", "system tag id (required)")
	sweepCmd.Flags().StringVarP(&sweepFlags.output, "output", "o", "text", "output format (text, json, csv)")
	_ = sweepCmd.MarkFlagRequired("tag")
}

func runSweep(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(sweepFlags.output)
	if err != nil {
		return err
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tracer, err := tracing.New(&a.cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("sweep", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	result, err := a.rules.RunNow(ctx, sweepFlags.tag)
	if err != nil {
		return cli.NewCommandError("sweep", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), sweepTable(result))
}

func sweepTable(r *archive.SweepResult) *cli.Table {
	before := ""
	if !r.ArchiveBefore.IsZero() {
		before = r.ArchiveBefore.UTC().Format(time.RFC3339)
	}
	return &cli.Table{
		Headers: []string{"TAG", "OUTCOME", "ARCHIVE_BEFORE", "SEEN", "ARCHIVED", "SKIPPED", "FAILED", "UNTAG_FAILURES", "DURATION"},
		Rows: [][]string{{
			r.TagID,
			r.Outcome.String(),
			before,
			strconv.Itoa(r.Stats.Seen),
			strconv.Itoa(r.Stats.Archived),
			strconv.Itoa(r.Stats.Skipped),
			strconv.Itoa(r.Stats.Failed),
			strconv.Itoa(r.Stats.UntagFailures),
			r.Duration.Round(time.Millisecond).String(),
		}},
		Data: struct {
			*archive.SweepResult
			Outcome    string `json:"outcome"`
			DurationMS int64  `json:"durationMs"`
		}{r, r.Outcome.String(), r.Duration.Milliseconds()},
	}
}
