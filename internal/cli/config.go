package cli

import (
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ifjconform/internal/config"
	"github.com/roach88/ifjconform/internal/registry"
)

// ConfigFlags are command-line overrides of the configuration file.
type ConfigFlags struct {
	Tool      string
	Registry  string
	Root      string
	Timeout   time.Duration
	Workers   int
	MaxOutput int
	Filter    string
	Database  string
}

// addRegistryFlags registers the flags that select test cases.
func (f *ConfigFlags) addRegistryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Registry, "registry", "", "registry file (.yaml, .yml or .cue); built-in cases when empty")
	cmd.Flags().StringVar(&f.Root, "root", "", "source root directory (default: registry file directory, or "+config.DefaultRoot+" for built-in cases)")
	cmd.Flags().StringVar(&f.Filter, "filter", "", "only cases whose source or file name matches this glob")
}

// addRunFlags registers the flags that control execution.
func (f *ConfigFlags) addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Tool, "tool", config.DefaultTool, "compiler under test")
	cmd.Flags().DurationVar(&f.Timeout, "timeout", config.DefaultTimeout, "wall-clock limit per case")
	cmd.Flags().IntVarP(&f.Workers, "workers", "j", config.DefaultWorkers, "compiler processes run at once")
	cmd.Flags().IntVar(&f.MaxOutput, "max-output", config.DefaultMaxOutput, "bytes captured per stream (0 = unlimited)")
	cmd.Flags().StringVar(&f.Database, "db", "", "record the run in this SQLite database")
}

// resolveConfig builds the configuration: defaults, then the config file,
// then every flag the user actually set.
func resolveConfig(cmd *cobra.Command, root *RootOptions, f *ConfigFlags) (config.Config, error) {
	cfg := config.Default()
	if root.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(root.ConfigPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = root.Format
	}
	if flags.Changed("tool") {
		cfg.Tool = f.Tool
	}
	if flags.Changed("registry") {
		cfg.Registry = f.Registry
	}
	if flags.Changed("root") {
		cfg.Root = f.Root
	}
	if flags.Changed("timeout") {
		cfg.Timeout = f.Timeout
	}
	if flags.Changed("workers") {
		cfg.Workers = f.Workers
	}
	if flags.Changed("max-output") {
		cfg.MaxOutput = f.MaxOutput
	}
	if flags.Changed("filter") {
		cfg.Filter = f.Filter
	}
	if flags.Changed("db") {
		cfg.Database = f.Database
	}

	return cfg, cfg.Validate()
}

// loadRegistry loads the configured registry, warns about shadowed
// duplicates and applies the filter.
func loadRegistry(cfg config.Config, logger *slog.Logger) (*registry.Registry, error) {
	var (
		reg *registry.Registry
		err error
	)
	if cfg.Registry != "" {
		reg, err = registry.Load(cfg.Registry, cfg.Root)
	} else {
		root := cfg.Root
		if root == "" {
			root = config.DefaultRoot
		}
		reg, err = registry.Default(root)
	}
	if err != nil {
		return nil, err
	}
	warnShadowed(logger, reg)

	if cfg.Filter != "" {
		return reg.Filter(cfg.Filter)
	}
	return reg, nil
}

// warnShadowed logs every registration that replaced an earlier one.
func warnShadowed(logger *slog.Logger, reg *registry.Registry) {
	for _, s := range reg.Shadowed() {
		logger.Warn("duplicate test case, later expectation wins",
			"source", s.Source,
			"previous", s.Previous,
			"current", s.Current)
	}
}

// newLogger returns a text logger on w. Only warnings are shown unless
// verbose is set.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
