// Package config holds the explicit run configuration of the harness.
//
// A Config value is built once (defaults, then an optional YAML file, then
// command-line flags) and handed to the harness at construction time.
// Nothing in the harness reads paths or limits from global state.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults match the layout of the IFJ24 project tree.
const (
	DefaultTool      = "./ifj24"
	DefaultRoot      = "../tests/test_files"
	DefaultTimeout   = 5 * time.Second
	DefaultWorkers   = 1
	DefaultFormat    = "text"
	DefaultMaxOutput = 1 << 20 // 1MiB per captured stream
)

// ValidFormats lists the supported report formats.
var ValidFormats = []string{"text", "json"}

// Config is the complete configuration of one harness run.
type Config struct {
	// Tool is the path of the compiler under test.
	Tool string `yaml:"tool"`

	// Registry is the path of a YAML or CUE registry file.
	// Empty selects the built-in registry.
	Registry string `yaml:"registry,omitempty"`

	// Root overrides the registry's source root directory.
	Root string `yaml:"root,omitempty"`

	// Timeout is the wall-clock ceiling for one compiler invocation.
	Timeout time.Duration `yaml:"timeout"`

	// Workers is the number of compiler processes allowed in flight.
	// 1 keeps the run fully sequential.
	Workers int `yaml:"workers"`

	// Format selects the report format ("text" or "json").
	Format string `yaml:"format"`

	// Database is an optional SQLite path for run history.
	Database string `yaml:"database,omitempty"`

	// MaxOutput caps the bytes captured per stream per case.
	MaxOutput int `yaml:"max_output"`

	// Filter is an optional glob applied to case sources.
	Filter string `yaml:"filter,omitempty"`
}

// Default returns a Config populated with the default values.
func Default() Config {
	return Config{
		Tool:      DefaultTool,
		Timeout:   DefaultTimeout,
		Workers:   DefaultWorkers,
		Format:    DefaultFormat,
		MaxOutput: DefaultMaxOutput,
	}
}

// Load reads a YAML config file on top of the defaults.
// Unknown fields are rejected so typos surface as errors.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, Wrap("config", "failed to read config file", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, Wrap("config", fmt.Sprintf("failed to parse %s", path), err)
	}

	return cfg, nil
}

// Validate checks option values. It does not touch the filesystem; tool and
// root checks belong to the components that use them.
func (c Config) Validate() error {
	if c.Tool == "" {
		return Errorf("tool", "compiler path is required")
	}
	if c.Timeout <= 0 {
		return Errorf("timeout", "must be positive, got %s", c.Timeout)
	}
	if c.Workers < 1 {
		return Errorf("workers", "must be at least 1, got %d", c.Workers)
	}
	if c.MaxOutput < 0 {
		return Errorf("max_output", "must not be negative, got %d", c.MaxOutput)
	}
	if !isValidFormat(c.Format) {
		return Errorf("format", "invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	return nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
