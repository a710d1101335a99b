package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/roach88/ifjconform/internal/executor"
	"github.com/roach88/ifjconform/internal/taxonomy"
)

// Formats understood by the reporter.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// CaseReport is the JSON form of one reported case.
type CaseReport struct {
	Source       string  `json:"source"`
	Verdict      Verdict `json:"verdict"`
	Expected     int     `json:"expected"`
	ExpectedName string  `json:"expected_name"`
	Observed     *int    `json:"observed,omitempty"`
	ObservedName string  `json:"observed_name,omitempty"`
	Failure      string  `json:"failure,omitempty"`
	Error        string  `json:"error,omitempty"`
	Stderr       string  `json:"stderr,omitempty"`
	Truncated    bool    `json:"truncated,omitempty"`
	DurationMS   int64   `json:"duration_ms"`
}

// Reporter renders one line per case and accumulates the run summary.
//
// Report is safe for concurrent use, though the harness calls it from a
// single aggregating goroutine so lines appear in registry order.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	format  string
	styles  styles
	summary Summary
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithColor forces coloured output on or off.
func WithColor(enabled bool) Option {
	return func(r *Reporter) {
		r.styles = newStyles(r.w, enabled, enabled)
	}
}

// New creates a reporter writing to w in the given format.
// Colour is enabled when w is a terminal and NO_COLOR is unset.
func New(w io.Writer, format string, opts ...Option) *Reporter {
	if format != FormatJSON {
		format = FormatText
	}
	r := &Reporter{
		w:      w,
		format: format,
		styles: newStyles(w, colorEnabled(w), false),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report evaluates res, counts it and writes its report line.
// Write errors are ignored; a broken report stream must not stop a run.
func (r *Reporter) Report(res executor.Result) Verdict {
	v := Evaluate(res)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary.Add(v)
	if r.format == FormatJSON {
		_ = json.NewEncoder(r.w).Encode(caseReport(v, res))
		return v
	}
	r.writeText(v, res)
	return v
}

// Summary returns the counts accumulated so far.
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Finish writes the summary and returns it.
func (r *Reporter) Finish() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.summary
	if r.format == FormatJSON {
		_ = json.NewEncoder(r.w).Encode(map[string]Summary{"summary": s})
		return s
	}

	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, s.String())
	if s.OK() {
		fmt.Fprintln(r.w, r.styles.pass("✓ All cases passed"))
	}
	return s
}

func (r *Reporter) writeText(v Verdict, res executor.Result) {
	if res.Case.Source == "" {
		fmt.Fprintf(r.w, "%s %s %s: result has no test case\n",
			r.styles.fail("✗"), "<unknown case>", r.styles.verdict(v)(string(v)))
		return
	}

	mark := r.styles.fail("✗")
	if v == Pass {
		mark = r.styles.pass("✓")
	}
	head := fmt.Sprintf("%s %s %s", mark, res.Case.Source, r.styles.verdict(v)(label(v, res)))

	if res.Observed != nil {
		fmt.Fprintf(r.w, "%s (expected %s, got %s)\n", head, res.Case.Expected, *res.Observed)
	} else {
		detail := res.ErrorMessage()
		if detail == "" {
			detail = "no exit code observed"
		}
		fmt.Fprintf(r.w, "%s (expected %s): %s\n", head, res.Case.Expected, detail)
	}

	if v == Pass {
		return
	}
	if stderr := strings.TrimRight(res.Stderr, "\n"); stderr != "" {
		fmt.Fprintln(r.w, r.styles.dim("  stderr:"))
		for _, line := range strings.Split(stderr, "\n") {
			fmt.Fprintf(r.w, "    %s\n", line)
		}
	}
	if res.Truncated {
		fmt.Fprintln(r.w, r.styles.dim("  (output truncated)"))
	}
}

func caseReport(v Verdict, res executor.Result) CaseReport {
	cr := CaseReport{
		Source:       res.Case.Source,
		Verdict:      v,
		Expected:     int(res.Case.Expected),
		ExpectedName: taxonomy.Name(res.Case.Expected),
		Failure:      string(res.Failure),
		Error:        res.ErrorMessage(),
		Truncated:    res.Truncated,
		DurationMS:   res.Duration.Milliseconds(),
	}
	if res.Observed != nil {
		observed := int(*res.Observed)
		cr.Observed = &observed
		cr.ObservedName = taxonomy.Name(*res.Observed)
	}
	if v != Pass {
		cr.Stderr = res.Stderr
	}
	return cr
}

// paint renders a report fragment.
type paint func(string) string

func plain(s string) string { return s }

// styles holds the painters of the text report. With colour disabled every
// painter returns its input unchanged so plain output stays byte-stable.
type styles struct {
	pass paint
	fail paint
	warn paint
	dim  paint
}

// newStyles builds the painters for w. forced pins the ANSI profile so
// colour survives a non-terminal writer.
func newStyles(w io.Writer, enabled, forced bool) styles {
	if !enabled {
		return styles{pass: plain, fail: plain, warn: plain, dim: plain}
	}
	renderer := lipgloss.NewRenderer(w)
	if forced {
		renderer.SetColorProfile(termenv.ANSI)
	}
	return styles{
		pass: painter(renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)),
		fail: painter(renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)),
		warn: painter(renderer.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)),
		dim:  painter(renderer.NewStyle().Faint(true)),
	}
}

func painter(st lipgloss.Style) paint {
	return func(s string) string { return st.Render(s) }
}

func (s styles) verdict(v Verdict) paint {
	switch v {
	case Pass:
		return s.pass
	case Timeout:
		return s.warn
	default:
		return s.fail
	}
}

func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
