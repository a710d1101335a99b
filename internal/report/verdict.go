// Package report turns execution results into verdicts, report lines and a
// run summary.
package report

import (
	"github.com/roach88/ifjconform/internal/executor"
)

// Verdict classifies the outcome of one test case.
type Verdict string

const (
	// Pass means the observed exit code equals the expected one exactly.
	Pass Verdict = "PASS"

	// Fail means the compiler ran to completion without the expected exit
	// code: a different code, or termination by a signal.
	Fail Verdict = "FAIL"

	// Timeout means the compiler was killed after exceeding the ceiling.
	Timeout Verdict = "TIMEOUT"

	// SpawnFailure means no process ran: the source was missing or the
	// compiler could not be started.
	SpawnFailure Verdict = "SPAWN_FAILURE"

	// Internal means the result itself was malformed: it names no test case.
	Internal Verdict = "INTERNAL"
)

// Evaluate classifies a result. It is a pure function of its input.
//
// Precedence: malformed result, spawn failure, timeout, exact match. There
// is no tolerance and no matching by code family: a result passes only when
// the observed code equals the expected code. A compiler killed by a signal
// has no exit code and fails.
func Evaluate(res executor.Result) Verdict {
	switch {
	case res.Case.Source == "":
		return Internal
	case res.SpawnFailed:
		return SpawnFailure
	case res.TimedOut:
		return Timeout
	case res.Observed != nil && *res.Observed == res.Case.Expected:
		return Pass
	default:
		return Fail
	}
}

// label returns the word printed for a verdict. Spawn failures are split by
// cause so a missing source reads differently from a broken compiler.
func label(v Verdict, res executor.Result) string {
	if v == SpawnFailure && res.Failure == executor.FailureMissingSource {
		return "MISSING_SOURCE"
	}
	return string(v)
}
