package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/ifjconform/internal/config"
	"github.com/roach88/ifjconform/internal/executor"
	"github.com/roach88/ifjconform/internal/harness"
	"github.com/roach88/ifjconform/internal/report"
	"github.com/roach88/ifjconform/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigFlags

	Color string // "auto" | "always" | "never"
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the conformance cases against the compiler",
		Long: `Feed every registered source program to the compiler on standard input
and compare its exit status with the expected one.

Each case prints one line; failures include the compiler's stderr. A
summary line closes the report. With --format json every case is one
JSON object per line, followed by a summary object.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed, timed out or could not run
  2 - Configuration error (tool not executable, missing root, ...)

Examples:
  ifjconform run
  ifjconform run --tool ./build/ifj24 --root ./tests/test_files
  ifjconform run --registry cases.yaml --workers 4 --timeout 2s
  ifjconform run --filter "2synt_*" --db history.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConformance(cmd, opts)
		},
	}

	opts.addRegistryFlags(cmd)
	opts.addRunFlags(cmd)
	cmd.Flags().StringVar(&opts.Color, "color", "auto", "colour text output (auto|always|never)")

	return cmd
}

func runConformance(cmd *cobra.Command, opts *RunOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := resolveConfig(cmd, opts.RootOptions, &opts.ConfigFlags)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	formatter.Format = cfg.Format

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	reg, err := loadRegistry(cfg, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRegistry, "failed to load registry", err)
	}

	tool, err := executor.CheckTool(cfg.Tool)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	runner := executor.NewProcessRunner(tool, cfg.MaxOutput)
	runner.Logger = logger

	var repOpts []report.Option
	switch opts.Color {
	case "auto":
	case "always":
		repOpts = append(repOpts, report.WithColor(true))
	case "never":
		repOpts = append(repOpts, report.WithColor(false))
	default:
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration",
			fmt.Errorf("invalid color %q: must be one of auto, always, never", opts.Color))
	}
	rep := report.New(cmd.OutOrStdout(), cfg.Format, repOpts...)

	// The database is created only once the configuration has been accepted.
	hopts := []harness.Option{harness.WithLogger(logger)}
	if cfg.Database != "" {
		st, err := store.Open(cfg.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open run history", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		hopts = append(hopts, harness.WithRecorder(st))
	}

	h, err := harness.New(cfg, reg, runner, rep, hopts...)
	if err != nil {
		code := ErrCodeGeneric
		if config.IsConfigError(err) {
			code = ErrCodeConfig
		}
		return formatter.Fail(ExitCommandError, code, "invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := h.Run(ctx)
	if outcome.Interrupted {
		return WrapExitError(ExitFailure, "run interrupted", err)
	}
	if err != nil {
		// Verdicts stand; only the history is incomplete.
		logger.Error("run history incomplete", "run_id", outcome.RunID, "error", err)
		if outcome.Summary.OK() {
			return reportedExitError(ExitCommandError, "failed to record run", err)
		}
	}

	if cfg.Database != "" {
		formatter.VerboseLog("Recorded run %s in %s", outcome.RunID, cfg.Database)
	}

	if !outcome.Summary.OK() {
		return reportedExitError(ExitFailure,
			fmt.Sprintf("%d of %d case(s) did not pass", outcome.Summary.NotPassed(), outcome.Summary.Total), nil)
	}
	return nil
}
