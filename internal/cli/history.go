package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ifjconform/internal/config"
	"github.com/roach88/ifjconform/internal/registry"
	"github.com/roach88/ifjconform/internal/report"
	"github.com/roach88/ifjconform/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string
	Source   string
}

// RunDetail is a recorded run with its results.
type RunDetail struct {
	Run     store.RunRecord      `json:"run"`
	Results []store.ResultRecord `json:"results"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show runs recorded with run --db.

Without flags the most recent runs are listed, newest first. --run shows
the results of one run in registry order; --case shows how one source
program fared across runs.

Examples:
  ifjconform history --db history.db
  ifjconform history --db history.db --run 01928c6e-...
  ifjconform history --db history.db --case 2synt_err_01.ifj24`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "run history database")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "maximum number of entries (0 = all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the results of this run")
	cmd.Flags().StringVar(&opts.Source, "case", "", "show the history of this case source")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.RunID != "" && opts.Source != "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--run and --case are mutually exclusive", nil)
	}

	dbPath := opts.Database
	if dbPath == "" && opts.ConfigPath != "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
		}
		dbPath = cfg.Database
	}
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "no run history database: use --db", nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open run history", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	switch {
	case opts.RunID != "":
		run, err := st.GetRun(ctx, opts.RunID)
		if err != nil {
			return historyError(formatter, err)
		}
		results, err := st.RunResults(ctx, opts.RunID)
		if err != nil {
			return historyError(formatter, err)
		}
		return outputRunDetail(formatter, RunDetail{Run: run, Results: results})

	case opts.Source != "":
		source, err := registry.NormalizeSource(opts.Source)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid case source", err)
		}
		results, err := st.CaseHistory(ctx, source, opts.Limit)
		if err != nil {
			return historyError(formatter, err)
		}
		return outputCaseHistory(formatter, source, results)

	default:
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return historyError(formatter, err)
		}
		return outputRuns(formatter, runs)
	}
}

func historyError(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "run not found", err)
	}
	return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run history", err)
}

func outputRuns(formatter *OutputFormatter, runs []store.RunRecord) error {
	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  %d/%d passed  %s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Summary.Passed,
			run.Summary.Total,
			runStatus(run))
	}
	return nil
}

func outputRunDetail(formatter *OutputFormatter, detail RunDetail) error {
	if formatter.Format == "json" {
		return formatter.Success(detail)
	}

	w := formatter.Writer
	run := detail.Run
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, runStatus(run))
	fmt.Fprintf(w, "  tool: %s\n", run.Tool)
	fmt.Fprintf(w, "  root: %s\n", run.Root)
	fmt.Fprintf(w, "  started: %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintln(w)
	for _, res := range detail.Results {
		fmt.Fprintf(w, "%s %s %s %s\n", mark(res.Verdict), res.Source, res.Verdict, outcomeText(res))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, run.Summary.String())
	return nil
}

func outputCaseHistory(formatter *OutputFormatter, source string, results []store.ResultRecord) error {
	if formatter.Format == "json" {
		return formatter.Success(results)
	}

	w := formatter.Writer
	if len(results) == 0 {
		fmt.Fprintf(w, "No results recorded for %s.\n", source)
		return nil
	}
	for _, res := range results {
		fmt.Fprintf(w, "%s %s %s %s\n", mark(res.Verdict), res.RunID, res.Verdict, outcomeText(res))
	}
	return nil
}

func runStatus(run store.RunRecord) string {
	switch {
	case !run.Finished():
		return "unfinished"
	case run.Summary.OK():
		return "ok"
	default:
		return "failed"
	}
}

func mark(v report.Verdict) string {
	if v == report.Pass {
		return "✓"
	}
	return "✗"
}

func outcomeText(res store.ResultRecord) string {
	if res.Observed != nil {
		return fmt.Sprintf("(expected %s, got %s)", res.Expected, *res.Observed)
	}
	if res.Error != "" {
		return fmt.Sprintf("(expected %s): %s", res.Expected, res.Error)
	}
	return fmt.Sprintf("(expected %s)", res.Expected)
}
