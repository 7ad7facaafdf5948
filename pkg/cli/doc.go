/*
Package cli holds the helpers shared by the archiver commands.

Command errors are reported through ConfigError and CommandError so main can
pick an exit code with ExitCode:

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}

Tabular results (rule listings, scan results) go through a Formatter, which
renders rows as aligned text, JSON or CSV:

	f := cli.NewFormatter(cli.FormatText)
	err := f.FormatTo(os.Stdout, table)

Long-running commands that walk every user report progress with
NewProgressReporter, and cancel their context on SIGINT or SIGTERM via
SetupSignalHandler.
*/
package cli
