// Package registry holds the ordered table of compiler test cases.
//
// A Registry pairs a source root directory with an ordered list of
// (source file, expected exit code) entries. Iteration order is the
// declaration order so reports are reproducible.
//
// # Duplicate Sources
//
// Registering the same source twice does not fail: the later entry's
// expectation replaces the earlier one while the case keeps the position of
// its first declaration. Each replaced entry is recorded in Shadowed so
// callers can warn about it. This mirrors the historical behaviour of the
// harness and is kept deliberately visible rather than silent.
//
// Source files are not checked for existence here. A missing file is found
// when the case is executed and is reported as a per-case failure.
package registry

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ifjconform/internal/config"
	"github.com/roach88/ifjconform/internal/taxonomy"
)

// Entry is one declared row of the registry table.
type Entry struct {
	Source string        `yaml:"source"`
	Expect taxonomy.Code `yaml:"expect"`
}

// TestCase pairs a source program with its expected compiler exit code.
type TestCase struct {
	// Source identifies the program, relative to the registry root,
	// with forward slashes.
	Source string `json:"source"`

	// Expected is the exit code the compiler must return.
	Expected taxonomy.Code `json:"expected"`
}

// Shadow records an entry whose expectation was replaced by a later one.
type Shadow struct {
	Source   string
	Previous taxonomy.Code
	Current  taxonomy.Code
	// Index is the declaration index of the replacing entry.
	Index int
}

// Registry is an ordered, immutable set of test cases under one root.
type Registry struct {
	root     string
	cases    []TestCase
	shadowed []Shadow
}

// New builds a registry from declared entries.
// Returns a ConfigError if root does not exist or is not a directory, or if
// an entry has an empty, absolute or root-escaping source.
func New(root string, entries []Entry) (*Registry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, config.Wrap("root", fmt.Sprintf("test root %q is not accessible", root), err)
	}
	if !info.IsDir() {
		return nil, config.Errorf("root", "test root %q is not a directory", root)
	}

	r := &Registry{
		root:  root,
		cases: make([]TestCase, 0, len(entries)),
	}
	positions := make(map[string]int, len(entries))

	for i, e := range entries {
		source, err := NormalizeSource(e.Source)
		if err != nil {
			return nil, config.Wrap(fmt.Sprintf("cases[%d].source", i), "invalid source", err)
		}

		if pos, ok := positions[source]; ok {
			r.shadowed = append(r.shadowed, Shadow{
				Source:   source,
				Previous: r.cases[pos].Expected,
				Current:  e.Expect,
				Index:    i,
			})
			r.cases[pos].Expected = e.Expect
			continue
		}

		positions[source] = len(r.cases)
		r.cases = append(r.cases, TestCase{Source: source, Expected: e.Expect})
	}

	return r, nil
}

// NormalizeSource converts a declared source into its canonical form:
// NFC-normalized, cleaned, slash-separated and relative to the root.
func NormalizeSource(s string) (string, error) {
	s = norm.NFC.String(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("source is required")
	}
	if filepath.IsAbs(s) || path.IsAbs(filepath.ToSlash(s)) {
		return "", fmt.Errorf("source %q must be relative to the test root", s)
	}
	cleaned := path.Clean(filepath.ToSlash(s))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("source %q escapes the test root", s)
	}
	return cleaned, nil
}

// Root returns the directory sources are resolved against.
func (r *Registry) Root() string {
	return r.root
}

// Cases returns the test cases in declaration order.
// The returned slice is a copy.
func (r *Registry) Cases() []TestCase {
	out := make([]TestCase, len(r.cases))
	copy(out, r.cases)
	return out
}

// Len returns the number of distinct test cases.
func (r *Registry) Len() int {
	return len(r.cases)
}

// Shadowed returns entries whose expectation was overridden by a later
// duplicate, in declaration order.
func (r *Registry) Shadowed() []Shadow {
	out := make([]Shadow, len(r.shadowed))
	copy(out, r.shadowed)
	return out
}

// Lookup returns the case registered for source.
func (r *Registry) Lookup(source string) (TestCase, bool) {
	normalized, err := NormalizeSource(source)
	if err != nil {
		return TestCase{}, false
	}
	for _, tc := range r.cases {
		if tc.Source == normalized {
			return tc, true
		}
	}
	return TestCase{}, false
}

// Path resolves the filesystem path of a case's source program.
func (r *Registry) Path(tc TestCase) string {
	return filepath.Join(r.root, filepath.FromSlash(tc.Source))
}

// Filter returns a registry containing only cases whose source, or its base
// name, matches the glob pattern. An empty pattern returns r unchanged.
func (r *Registry) Filter(pattern string) (*Registry, error) {
	if pattern == "" {
		return r, nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, config.Wrap("filter", fmt.Sprintf("invalid filter pattern %q", pattern), err)
	}

	filtered := &Registry{root: r.root, shadowed: r.shadowed}
	for _, tc := range r.cases {
		full, _ := path.Match(pattern, tc.Source)
		base, _ := path.Match(pattern, path.Base(tc.Source))
		if full || base {
			filtered.cases = append(filtered.cases, tc)
		}
	}
	return filtered, nil
}
