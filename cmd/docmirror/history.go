package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nao1215/docmirror/internal/config"
	"github.com/nao1215/docmirror/internal/database"
	"github.com/nao1215/docmirror/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded crawl runs",
		Long: `History lists the crawl runs recorded in the history database.

Examples:
  # List the 20 most recent runs
  docmirror history

  # List the pages of run 12
  docmirror history --run 12

  # Show pages added, removed and changed between runs 11 and 12
  docmirror history --diff 11 12

  # JSON output for scripts
  docmirror history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Number of runs to list (0 = all)")
	cmd.Flags().Int64("run", 0, "Show the pages of this run")
	cmd.Flags().StringSlice("diff", nil, "Compare two runs: --diff A B or --diff A,B")
	cmd.Flags().BoolP("json", "j", false, "Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().Bool("markdown", false, "Output Markdown (mutually exclusive with --json)")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	cmd.MarkFlagsMutuallyExclusive("run", "diff")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	format := report.FormatText
	switch {
	case asJSON:
		format = report.FormatJSON
	case asMarkdown:
		format = report.FormatMarkdown
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no run history yet: %w", err)
		}
		return err
	}
	defer db.Close()

	w, err := report.NewHistoryWriter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	diffArgs, err := flags.GetStringSlice("diff")
	if err != nil {
		return err
	}
	if len(args) > 0 {
		// The second id of "--diff A B" arrives as a positional argument.
		if len(diffArgs) != 1 {
			return fmt.Errorf("unexpected argument %q", args[0])
		}
		diffArgs = append(diffArgs, args[0])
	}
	if len(diffArgs) > 0 {
		from, to, err := parseDiffArgs(diffArgs)
		if err != nil {
			return err
		}
		diff, err := db.DiffRuns(ctx, from, to)
		if err != nil {
			return err
		}
		_, err = w.WriteDiff(diff)
		return err
	}

	if flags.Changed("run") {
		id, err := flags.GetInt64("run")
		if err != nil {
			return err
		}
		summary, err := db.GetRun(ctx, id)
		if err != nil {
			return err
		}
		_, err = w.WritePages(id, summary)
		return err
	}

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	_, err = w.WriteRuns(runs)
	return err
}

// parseDiffArgs parses exactly two run ids.
func parseDiffArgs(args []string) (from, to int64, err error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("--diff needs exactly two run ids, got %d", len(args))
	}
	ids := make([]int64, 2)
	for i, a := range args {
		ids[i], err = strconv.ParseInt(a, 10, 64)
		if err != nil || ids[i] <= 0 {
			return 0, 0, fmt.Errorf("invalid run id %q", a)
		}
	}
	return ids[0], ids[1], nil
}
