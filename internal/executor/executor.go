// Package executor runs the compiler under test against one source program.
//
// The compiler is an opaque executable: it is started with no arguments,
// reads the program on standard input and reports its verdict through its
// exit status. The executor captures that status together with stdout and
// stderr, and enforces a hard wall-clock timeout.
//
// Every failure is reported inside the Result. Run never panics and never
// returns an error, so one broken case cannot abort a run.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"

	"github.com/roach88/ifjconform/internal/config"
	"github.com/roach88/ifjconform/internal/registry"
	"github.com/roach88/ifjconform/internal/taxonomy"
)

// DefaultWaitDelay bounds how long Wait keeps draining output after the
// compiler was killed or exited while descendants still hold its pipes.
const DefaultWaitDelay = 2 * time.Second

// Runner executes a single test case.
//
// The harness only depends on this interface so it can drive cases
// sequentially or from a worker pool, and tests can substitute fakes.
type Runner interface {
	Run(ctx context.Context, tc registry.TestCase, path string, timeout time.Duration) Result
}

// ProcessRunner runs the compiler as a local child process.
// A ProcessRunner holds no per-case state and is safe for concurrent use.
type ProcessRunner struct {
	// Tool is the compiler executable.
	Tool string

	// MaxOutput caps the captured bytes per stream. Zero means unlimited.
	MaxOutput int

	// WaitDelay overrides DefaultWaitDelay when positive.
	WaitDelay time.Duration

	// Clock measures case durations. Defaults to the real clock.
	Clock clock.Clock

	// Logger receives debug events. Defaults to a discard logger.
	Logger *slog.Logger
}

var _ Runner = (*ProcessRunner)(nil)

// NewProcessRunner creates a runner for the compiler at tool.
func NewProcessRunner(tool string, maxOutput int) *ProcessRunner {
	return &ProcessRunner{
		Tool:      tool,
		MaxOutput: maxOutput,
		Clock:     clock.NewClock(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Run feeds the file at path to the compiler and waits at most timeout for
// it to terminate.
//
// Outcomes:
//   - source cannot be opened: SpawnFailed, FailureMissingSource, no process
//   - compiler cannot be started: SpawnFailed, FailureSpawn
//   - timeout expired: TimedOut, the process group is killed
//   - normal exit: Observed holds the exit status
//   - killed by a signal or parent cancellation: Observed nil, Err set
func (r *ProcessRunner) Run(ctx context.Context, tc registry.TestCase, path string, timeout time.Duration) (res Result) {
	clk := r.clock()
	logger := r.logger()
	start := clk.Now()

	res.Case = tc
	defer func() {
		res.Duration = clk.Since(start)
	}()

	src, err := os.Open(path)
	if err != nil {
		res.SpawnFailed = true
		res.Failure = FailureMissingSource
		res.Err = fmt.Errorf("failed to open source: %w", err)
		logger.Debug("source unavailable", "source", tc.Source, "error", err)
		return res
	}
	defer src.Close()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := newCappedBuffer(r.MaxOutput)
	stderr := newCappedBuffer(r.MaxOutput)

	var killed atomic.Bool
	cmd := exec.CommandContext(runCtx, r.Tool)
	cmd.Stdin = src
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		killed.Store(true)
		return killProcessTree(cmd)
	}
	cmd.WaitDelay = r.waitDelay()

	if err := cmd.Start(); err != nil {
		res.SpawnFailed = true
		res.Failure = FailureSpawn
		res.Err = fmt.Errorf("failed to start compiler: %w", err)
		logger.Debug("compiler spawn failed", "tool", r.Tool, "error", err)
		return res
	}
	logger.Debug("compiler started", "source", tc.Source, "pid", cmd.Process.Pid)

	waitErr := cmd.Wait()

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Truncated = stdout.truncated || stderr.truncated

	if killed.Load() {
		if ctx.Err() != nil {
			res.Err = fmt.Errorf("compiler interrupted: %w", ctx.Err())
		} else {
			res.TimedOut = true
			res.Err = fmt.Errorf("compiler exceeded timeout of %s", timeout)
		}
		logger.Debug("compiler killed", "source", tc.Source, "timed_out", res.TimedOut)
		return res
	}

	state := cmd.ProcessState
	switch {
	case state != nil && state.Exited():
		code := taxonomy.Code(state.ExitCode())
		res.Observed = &code
		if errors.Is(waitErr, exec.ErrWaitDelay) {
			res.Err = fmt.Errorf("compiler output not closed after exit: %w", waitErr)
		}
	case state != nil:
		res.Err = fmt.Errorf("compiler terminated abnormally: %s", state.String())
	default:
		res.Err = fmt.Errorf("compiler wait failed: %w", waitErr)
	}

	logger.Debug("compiler finished",
		"source", tc.Source,
		"observed", res.Observed,
		"duration", clk.Since(start),
	)
	return res
}

func (r *ProcessRunner) clock() clock.Clock {
	if r.Clock == nil {
		return clock.NewClock()
	}
	return r.Clock
}

func (r *ProcessRunner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

func (r *ProcessRunner) waitDelay() time.Duration {
	if r.WaitDelay > 0 {
		return r.WaitDelay
	}
	return DefaultWaitDelay
}

// CheckTool verifies that path names an executable file and returns the
// resolved path. A bare name is looked up in PATH; a match found through a
// relative PATH entry is rejected because exec refuses to run it.
// Returns a ConfigError when the compiler cannot be used.
func CheckTool(path string) (string, error) {
	if path == "" {
		return "", config.Errorf("tool", "compiler path is required")
	}
	resolved, err := exec.LookPath(path)
	if errors.Is(err, exec.ErrDot) {
		return "", config.Wrap("tool",
			fmt.Sprintf("compiler %q resolves relative to the current directory, use ./%s", path, path), err)
	}
	if err != nil {
		return "", config.Wrap("tool", fmt.Sprintf("compiler %q is not executable", path), err)
	}
	return resolved, nil
}

// cappedBuffer keeps at most limit bytes and silently discards the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

// Write never fails so the child never sees EPIPE because of the cap.
func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.limit <= 0 {
		return b.buf.Write(p)
	}
	room := b.limit - b.buf.Len()
	if room <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
