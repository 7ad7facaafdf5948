package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdhemmi/files-archive/pkg/archive"
	"github.com/mdhemmi/files-archive/pkg/cli"
	"github.com/mdhemmi/files-archive/pkg/rules"
)

var rulesFlags struct {
	output string
	tag    int64
	unit   string
	amount int
	after  string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage archive rules",
	Long: `List, create and delete archive rules. Every rule binds one system tag
to an age threshold and owns one recurring archive job.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archive rules",
	Args:  cobra.NoArgs,
	RunE:  listRules,
}

var rulesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an archive rule",
	Long: `Create an archive rule and register its archive job.

--unit is day, week, month or year. --after selects the timestamp the
threshold applies to: "creation" (upload time, falling back to mtime) or
"mtime" (modification time unless the upload is newer).

Examples:
  archiver rules create --tag 12 --unit month --amount 3
  archiver rules create --tag 7 --unit day --amount 30 --after mtime`,
	Args: cobra.NoArgs,
	RunE: createRule,
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archive rule and its job",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteRule,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesCreateCmd, rulesDeleteCmd)

	rulesListCmd.Flags().StringVarP(&rulesFlags.output, "output", "o", "text", "output format (text, json, csv)")

	rulesCreateCmd.Flags().Int64VarP(&rulesFlags.tag, "tag", "t", 0, "system tag id (required)")
	rulesCreateCmd.Flags().StringVarP(&rulesFlags.unit, "unit", "u", "day", "threshold unit (day, week, month, year)")
	rulesCreateCmd.Flags().IntVarP(&rulesFlags.amount, "amount", "a", 0, "threshold amount, at least 1 (required)")
	rulesCreateCmd.Flags().StringVar(&rulesFlags.after, "after", "creation", "timestamp the threshold applies to (creation, mtime)")
	_ = rulesCreateCmd.MarkFlagRequired("tag")
	_ = rulesCreateCmd.MarkFlagRequired("amount")
}

func listRules(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(rulesFlags.output)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	views, err := a.rules.List(cmd.Context())
	if err != nil {
		return cli.NewCommandError("rules list", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), rulesTable(views))
}

func createRule(cmd *cobra.Command, args []string) error {
	unit, err := parseUnit(rulesFlags.unit)
	if err != nil {
		return err
	}
	after, err := parseAfter(rulesFlags.after)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	rule := &archive.Rule{
		TagID:      rulesFlags.tag,
		TimeUnit:   unit,
		TimeAmount: rulesFlags.amount,
		TimeAfter:  after,
	}
	if err := a.rules.Create(cmd.Context(), rule); err != nil {
		return cli.NewCommandError("rules create", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Rule %d created for tag %d\n", rule.ID, rule.TagID)
	return nil
}

func deleteRule(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid rule id %q", args[0])
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.rules.Delete(cmd.Context(), id); err != nil {
		return cli.NewCommandError("rules delete", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Rule %d deleted\n", id)
	return nil
}

func rulesTable(views []rules.RuleView) *cli.Table {
	if views == nil {
		views = []rules.RuleView{}
	}
	t := &cli.Table{
		Headers: []string{"ID", "TAG", "OLDER_THAN", "AFTER", "JOB"},
		Data:    views,
	}
	for _, v := range views {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(v.ID, 10),
			strconv.FormatInt(v.TagID, 10),
			fmt.Sprintf("%d %s", v.TimeAmount, v.TimeUnit),
			v.TimeAfter.String(),
			strconv.FormatBool(v.HasJob),
		})
	}
	return t
}

// parseUnit accepts unit names, their plurals and the numeric encoding.
func parseUnit(s string) (archive.TimeUnit, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	for u := archive.UnitDay; u <= archive.UnitYear; u++ {
		if s == u.String() || s == strconv.Itoa(int(u)) {
			return u, nil
		}
	}
	return 0, fmt.Errorf("invalid unit %q (must be day, week, month or year)", s)
}

// parseAfter accepts "creation", "mtime" and the mode names.
func parseAfter(s string) (archive.TimeAfterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "creation", "created", "upload", archive.ModeCreationTime.String(), "0":
		return archive.ModeCreationTime, nil
	case "mtime", "modified", "modification", archive.ModeModificationTime.String(), "1":
		return archive.ModeModificationTime, nil
	default:
		return 0, fmt.Errorf("invalid time mode %q (must be creation or mtime)", s)
	}
}
