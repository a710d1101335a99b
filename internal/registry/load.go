package registry

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ifjconform/internal/config"
	"github.com/roach88/ifjconform/internal/taxonomy"
)

// FormatVersion is the only registry file version understood.
const FormatVersion = 1

//go:embed default_cases.yaml
var defaultCasesYAML []byte

// File is the on-disk registry document.
//
//	version: 1
//	root: test_files
//	cases:
//	  - source: 1lex_err_01.ifj24
//	    expect: LEXICAL_ERROR
//	  - source: ok_01.ifj24
//	    expect: 0
type File struct {
	Version int         `yaml:"version"`
	Root    string      `yaml:"root,omitempty"`
	Cases   []fileEntry `yaml:"cases"`
}

type fileEntry struct {
	Source string         `yaml:"source"`
	Expect *taxonomy.Code `yaml:"expect"`
}

// Load reads a registry file and builds the registry.
// The format is chosen by extension: .yaml/.yml or .cue.
//
// A relative root in the file is resolved against the file's directory.
// A non-empty rootOverride replaces the file's root entirely.
func Load(path, rootOverride string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, config.Wrap("registry", "failed to read registry file", err)
	}

	var entries []Entry
	var root string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		entries, root, err = parseYAML(data)
	case ".cue":
		entries, root, err = parseCUE(data, path)
	default:
		return nil, config.Errorf("registry", "unsupported registry format %q (want .yaml, .yml or .cue)", ext)
	}
	if err != nil {
		return nil, config.Wrap("registry", fmt.Sprintf("invalid registry %s", path), err)
	}

	switch {
	case rootOverride != "":
		root = rootOverride
	case root == "":
		root = filepath.Dir(path)
	case !filepath.IsAbs(root):
		root = filepath.Join(filepath.Dir(path), root)
	}

	return New(root, entries)
}

// Default builds the built-in registry under root.
func Default(root string) (*Registry, error) {
	entries, _, err := parseYAML(defaultCasesYAML)
	if err != nil {
		return nil, fmt.Errorf("built-in registry: %w", err)
	}
	return New(root, entries)
}

// parseYAML decodes a registry document with strict field checking.
func parseYAML(data []byte) ([]Entry, string, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, "", fmt.Errorf("failed to parse YAML: %w", err)
	}

	if f.Version != FormatVersion {
		return nil, "", fmt.Errorf("unsupported version %d (want %d)", f.Version, FormatVersion)
	}

	entries := make([]Entry, 0, len(f.Cases))
	for i, c := range f.Cases {
		if c.Source == "" {
			return nil, "", fmt.Errorf("cases[%d]: source is required", i)
		}
		if c.Expect == nil {
			return nil, "", fmt.Errorf("cases[%d]: expect is required", i)
		}
		entries = append(entries, Entry{Source: c.Source, Expect: *c.Expect})
	}
	return entries, f.Root, nil
}
