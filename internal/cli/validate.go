package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ifjconform/internal/registry"
	"github.com/roach88/ifjconform/internal/taxonomy"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ConfigFlags
}

// ValidationCase is one registered case as seen by validate.
type ValidationCase struct {
	Source   string        `json:"source"`
	Expected taxonomy.Code `json:"expected"`
	Present  bool          `json:"present"`
}

// ShadowedCase is a registration replaced by a later one.
type ShadowedCase struct {
	Source   string        `json:"source"`
	Previous taxonomy.Code `json:"previous"`
	Current  taxonomy.Code `json:"current"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool             `json:"valid"`
	Root     string           `json:"root"`
	Cases    []ValidationCase `json:"cases"`
	Missing  []string         `json:"missing,omitempty"`
	Shadowed []ShadowedCase   `json:"shadowed,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the registry without running the compiler",
		Long: `Load the test case registry and check it without spawning the compiler.

Reports duplicate registrations (the later expectation wins) and source
programs missing from the root directory. Missing sources make validate
fail; duplicates only warn.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}

	opts.addRegistryFlags(cmd)

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions) error {
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

	reg, err := loadRegistry(cfg, newLogger(cmd.ErrOrStderr(), opts.Verbose))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRegistry, "failed to load registry", err)
	}
	formatter.VerboseLog("Loaded %d case(s) under %s", reg.Len(), reg.Root())

	result, err := validateRegistry(reg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to check sources", err)
	}

	if formatter.Format == "json" {
		return outputValidateJSON(formatter, result)
	}
	return outputValidateText(formatter, result)
}

// validateRegistry checks that every source exists as a regular file.
func validateRegistry(reg *registry.Registry) (ValidationResult, error) {
	result := ValidationResult{
		Root:  reg.Root(),
		Cases: make([]ValidationCase, 0, reg.Len()),
	}

	for _, tc := range reg.Cases() {
		info, err := os.Stat(reg.Path(tc))
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return result, fmt.Errorf("stat %s: %w", tc.Source, err)
		}
		present := err == nil && info.Mode().IsRegular()
		if !present {
			result.Missing = append(result.Missing, tc.Source)
		}
		result.Cases = append(result.Cases, ValidationCase{
			Source:   tc.Source,
			Expected: tc.Expected,
			Present:  present,
		})
	}

	for _, s := range reg.Shadowed() {
		result.Shadowed = append(result.Shadowed, ShadowedCase{
			Source:   s.Source,
			Previous: s.Previous,
			Current:  s.Current,
		})
	}

	result.Valid = len(result.Missing) == 0
	return result, nil
}

func outputValidateJSON(formatter *OutputFormatter, result ValidationResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.Valid {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeSources,
			Message: fmt.Sprintf("%d source file(s) missing", len(result.Missing)),
		}
	}

	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Valid {
		return reportedExitError(ExitFailure, fmt.Sprintf("validation failed with %d missing source(s)", len(result.Missing)), nil)
	}
	return nil
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult) error {
	w := formatter.Writer

	for _, s := range result.Shadowed {
		fmt.Fprintf(w, "! %s registered twice: expected %s replaced by %s\n", s.Source, s.Previous, s.Current)
	}
	for _, source := range result.Missing {
		fmt.Fprintf(w, "✗ %s missing\n", source)
	}

	if !result.Valid {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "✗ Validation failed: %d of %d source(s) missing under %s\n",
			len(result.Missing), len(result.Cases), result.Root)
		return reportedExitError(ExitFailure, fmt.Sprintf("validation failed with %d missing source(s)", len(result.Missing)), nil)
	}

	fmt.Fprintf(w, "✓ All %d case(s) valid\n", len(result.Cases))
	return nil
}
