package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mdhemmi/files-archive/pkg/cli"
	"github.com/mdhemmi/files-archive/pkg/filestore"
)

var scanFlags struct {
	users    []string
	output   string
	progress bool
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Index user files into the metadata store",
	Long: `Walk <data_dir>/<user>/files for every user (or only --user) and index
each regular file with the user's home mount. Files seen for the first time
get the scan time as upload time; index entries of removed files are
dropped. Tags are assigned to indexed objects through the API.

Examples:
  archiver scan
  archiver scan --user alice --user bob --output json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSliceVarP(&scanFlags.users, "user", "u", nil, "scan only these users")
	scanCmd.Flags().StringVarP(&scanFlags.output, "output", "o", "text", "output format (text, json, csv)")
	scanCmd.Flags().BoolVar(&scanFlags.progress, "progress", true, "report progress on stderr")
}

func runScan(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(scanFlags.output)
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

	users := scanFlags.users
	if len(users) == 0 {
		users, err = a.workspaces.Users()
		if err != nil {
			return cli.NewCommandError("scan", err)
		}
	}

	var progress cli.ProgressReporter
	if scanFlags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
		progress.Start(len(users))
	}

	scanner := a.scanner()
	results := make([]*filestore.ScanResult, 0, len(users))
	failed := 0
	for i, user := range users {
		if err := ctx.Err(); err != nil {
			return cli.NewCommandError("scan", err)
		}
		res, err := scanner.Scan(ctx, user)
		if err != nil {
			failed++
			if progress != nil {
				progress.Error(user, err)
			}
		} else {
			results = append(results, res)
		}
		if progress != nil {
			progress.Update(i+1, user)
		}
	}
	if progress != nil {
		progress.Finish()
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), scanTable(results)); err != nil {
		return err
	}
	if failed > 0 {
		return cli.NewCommandError("scan", fmt.Errorf("%d user(s) could not be scanned", failed))
	}
	return nil
}

func scanTable(results []*filestore.ScanResult) *cli.Table {
	t := &cli.Table{
		Headers: []string{"USER", "FILES", "ADDED", "REMOVED"},
		Data:    results,
	}
	for _, r := range results {
		t.Rows = append(t.Rows, []string{
			r.UserID,
			strconv.Itoa(r.Files),
			strconv.Itoa(r.Added),
			strconv.Itoa(r.Removed),
		})
	}
	return t
}
