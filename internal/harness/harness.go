package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ifjconform/internal/config"
	"github.com/roach88/ifjconform/internal/executor"
	"github.com/roach88/ifjconform/internal/registry"
	"github.com/roach88/ifjconform/internal/report"
)

// ErrAlreadyRun is returned by Run when the harness has already been run.
var ErrAlreadyRun = errors.New("harness: run already started")

// State is the lifecycle state of a Harness.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	ID        string
	Tool      string
	Root      string
	Workers   int
	Timeout   time.Duration
	Total     int
	StartedAt time.Time
}

// Recorder persists runs. The store implements it.
//
// Recording failures never change verdicts. They are logged and the first
// one is returned by Run once the run completed.
type Recorder interface {
	BeginRun(ctx context.Context, info RunInfo) error
	RecordResult(ctx context.Context, runID string, seq int, res executor.Result, v report.Verdict) error
	FinishRun(ctx context.Context, runID string, summary report.Summary, finishedAt time.Time) error
}

// CaseOutcome pairs a result with its verdict.
type CaseOutcome struct {
	Result  executor.Result `json:"result"`
	Verdict report.Verdict  `json:"verdict"`
}

// RunOutcome is everything a run produced.
// Results are in registry order. Summary.OK is the overall verdict.
type RunOutcome struct {
	RunID      string         `json:"run_id"`
	Summary    report.Summary `json:"summary"`
	Results    []CaseOutcome  `json:"results"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`

	// Interrupted is set when the context was cancelled during the run.
	Interrupted bool `json:"interrupted,omitempty"`
}

// Harness runs every case of a registry against the compiler once.
type Harness struct {
	cfg      config.Config
	reg      *registry.Registry
	runner   executor.Runner
	rep      *report.Reporter
	recorder Recorder
	runIDs   RunIDGenerator
	clock    clock.Clock
	logger   *slog.Logger

	state atomic.Int32
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRecorder records the run and each case result.
func WithRecorder(r Recorder) Option {
	return func(h *Harness) {
		h.recorder = r
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ID generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(h *Harness) {
		if g != nil {
			h.runIDs = g
		}
	}
}

// WithClock sets the clock used for run timestamps.
func WithClock(c clock.Clock) Option {
	return func(h *Harness) {
		if c != nil {
			h.clock = c
		}
	}
}

// New creates a harness for one run.
//
// The configuration is validated and the compiler is checked to be an
// executable file. Any problem is returned as a *config.ConfigError and no
// case is executed.
func New(cfg config.Config, reg *registry.Registry, runner executor.Runner, rep *report.Reporter, opts ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, config.Errorf("registry", "no test case registry loaded")
	}
	if runner == nil || rep == nil {
		return nil, errors.New("harness: runner and reporter are required")
	}
	if _, err := executor.CheckTool(cfg.Tool); err != nil {
		return nil, err
	}

	h := &Harness{
		cfg:    cfg,
		reg:    reg,
		runner: runner,
		rep:    rep,
		runIDs: UUIDv7Generator{},
		clock:  clock.NewClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// State returns the current lifecycle state.
func (h *Harness) State() State {
	return State(h.state.Load())
}

// Run executes every case and writes the report.
//
// Run returns an error only for a second call, an interrupted run or a
// recording failure. Case failures are reported in the outcome. When ctx
// is cancelled no further case is scheduled, in-flight compilers are
// killed, and the partial outcome is returned together with the error.
func (h *Harness) Run(ctx context.Context) (RunOutcome, error) {
	if !h.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return RunOutcome{}, ErrAlreadyRun
	}
	defer h.state.Store(int32(StateDone))

	cases := h.reg.Cases()
	out := RunOutcome{
		RunID:     h.runIDs.Generate(),
		StartedAt: h.clock.Now(),
		Results:   make([]CaseOutcome, 0, len(cases)),
	}

	logger := h.logger.With("run_id", out.RunID)
	logger.Info("run started",
		"tool", h.cfg.Tool,
		"root", h.reg.Root(),
		"cases", len(cases),
		"workers", h.cfg.Workers,
		"timeout", h.cfg.Timeout)

	// Recording must survive cancellation so an interrupted run is still
	// closed out in the store.
	recCtx := context.WithoutCancel(ctx)
	var recErr error
	if h.recorder != nil {
		info := RunInfo{
			ID:        out.RunID,
			Tool:      h.cfg.Tool,
			Root:      h.reg.Root(),
			Workers:   h.cfg.Workers,
			Timeout:   h.cfg.Timeout,
			Total:     len(cases),
			StartedAt: out.StartedAt,
		}
		if err := h.recorder.BeginRun(recCtx, info); err != nil {
			logger.Warn("failed to record run start, history disabled for this run", "error", err)
			recErr = err
		}
	}
	recording := h.recorder != nil && recErr == nil

	emit := func(seq int, res executor.Result) {
		v := h.rep.Report(res)
		out.Results = append(out.Results, CaseOutcome{Result: res, Verdict: v})
		logger.Debug("case reported", "seq", seq, "source", res.Case.Source, "verdict", v)
		if !recording {
			return
		}
		if err := h.recorder.RecordResult(recCtx, out.RunID, seq, res, v); err != nil {
			logger.Warn("failed to record result", "source", res.Case.Source, "error", err)
			if recErr == nil {
				recErr = err
			}
		}
	}

	var runErr error
	if h.cfg.Workers <= 1 {
		runErr = h.runSequential(ctx, cases, emit)
	} else {
		runErr = h.runPooled(ctx, cases, emit)
	}

	out.Summary = h.rep.Finish()
	out.FinishedAt = h.clock.Now()
	out.Interrupted = runErr != nil

	if recording {
		if err := h.recorder.FinishRun(recCtx, out.RunID, out.Summary, out.FinishedAt); err != nil {
			logger.Warn("failed to record run summary", "error", err)
			if recErr == nil {
				recErr = err
			}
		}
	}

	logger.Info("run finished",
		"passed", out.Summary.Passed,
		"total", out.Summary.Total,
		"interrupted", out.Interrupted)

	if runErr != nil {
		return out, fmt.Errorf("run interrupted: %w", runErr)
	}
	if recErr != nil {
		return out, fmt.Errorf("failed to record run: %w", recErr)
	}
	return out, nil
}

// runSequential runs the cases one after another in registry order.
func (h *Harness) runSequential(ctx context.Context, cases []registry.TestCase, emit func(int, executor.Result)) error {
	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			return err
		}
		emit(i, h.runCase(ctx, tc))
	}
	return ctx.Err()
}

type indexedResult struct {
	seq int
	res executor.Result
}

// runPooled runs the cases on at most cfg.Workers goroutines. Results go to
// a single aggregator which emits them in registry order. emit is only ever
// called from the aggregator.
func (h *Harness) runPooled(ctx context.Context, cases []registry.TestCase, emit func(int, executor.Result)) error {
	results := make(chan indexedResult)
	done := make(chan struct{})

	go func() {
		defer close(done)
		pending := make(map[int]executor.Result)
		next := 0
		for r := range results {
			pending[r.seq] = r.res
			for {
				res, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				emit(next, res)
				next++
			}
		}

		// After a cancellation some cases never ran; flush what did.
		seqs := make([]int, 0, len(pending))
		for seq := range pending {
			seqs = append(seqs, seq)
		}
		sort.Ints(seqs)
		for _, seq := range seqs {
			emit(seq, pending[seq])
		}
	}()

	var g errgroup.Group
	g.SetLimit(h.cfg.Workers)
	for i, tc := range cases {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results <- indexedResult{seq: i, res: h.runCase(ctx, tc)}
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	<-done

	return ctx.Err()
}

func (h *Harness) runCase(ctx context.Context, tc registry.TestCase) executor.Result {
	h.logger.Debug("running case", "source", tc.Source, "expected", tc.Expected)
	return h.runner.Run(ctx, tc, h.reg.Path(tc), h.cfg.Timeout)
}
