package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mdhemmi/files-archive/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "archiver",
	Short: "Archiver - age-based file archiving by tag",
	Long: `Archiver moves files carrying a system tag into the owner's archive
folder once they are older than the archive rule bound to that tag.

Each rule runs as a recurring job. Files are archived into
<user>/files/.archive/<original path>; name collisions get a " (n)" suffix.

Configuration is read from --config (YAML) and ARCHIVER_* environment
variables; without a file the built-in defaults are used.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
