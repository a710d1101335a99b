// Package harness drives a conformance run of the compiler under test.
//
// A Harness owns one run over a test case registry. It resolves each case
// to its source path, hands it to an executor.Runner, evaluates the result
// and reports it. Cases never abort the run: a missing source, a compiler
// that cannot be started, a timeout or a mismatch is reported for that case
// and the run moves on. Only configuration errors are fatal, and those are
// returned by New before any case executes.
//
// # Lifecycle
//
// A Harness moves through three states:
//
//	Idle -> Running -> Done
//
// Run may be called once. A second call returns ErrAlreadyRun.
//
// # Scheduling
//
// With one worker the cases run strictly in registry order. With more
// workers they run on a bounded pool, and a single aggregating goroutine
// buffers finished results and reports them in registry order, so the
// report of a pooled run is identical to a sequential one.
//
// # Usage
//
//	cfg := config.Default()
//	reg, err := registry.Default(cfg.Root)
//	if err != nil {
//	    return err
//	}
//	rep := report.New(os.Stdout, cfg.Format)
//	h, err := harness.New(cfg, reg, executor.NewProcessRunner(cfg.Tool, cfg.MaxOutput), rep)
//	if err != nil {
//	    return err // configuration error, nothing ran
//	}
//	outcome, err := h.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	if !outcome.Summary.OK() {
//	    os.Exit(1)
//	}
package harness
