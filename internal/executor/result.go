package executor

import (
	"time"

	"github.com/roach88/ifjconform/internal/registry"
	"github.com/roach88/ifjconform/internal/taxonomy"
)

// FailureKind tells why a case produced no exit code.
type FailureKind string

const (
	// FailureNone means the compiler ran (it may still have timed out).
	FailureNone FailureKind = ""

	// FailureMissingSource means the source program could not be opened.
	// No process was spawned.
	FailureMissingSource FailureKind = "missing_source"

	// FailureSpawn means the compiler binary could not be started.
	FailureSpawn FailureKind = "spawn"
)

// Result is the outcome of one compiler invocation.
// A Result is created per invocation and never shared between cases.
type Result struct {
	Case registry.TestCase `json:"case"`

	// Observed is the compiler's exit code. Nil when the compiler did not
	// terminate normally (spawn failure, timeout, killed by a signal).
	Observed *taxonomy.Code `json:"observed,omitempty"`

	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// Truncated is set when captured output exceeded the capture limit.
	Truncated bool `json:"truncated,omitempty"`

	TimedOut    bool        `json:"timed_out"`
	SpawnFailed bool        `json:"spawn_failed"`
	Failure     FailureKind `json:"failure,omitempty"`

	// Err describes abnormal termination, if any.
	Err error `json:"-"`

	Duration time.Duration `json:"duration_ns"`
}

// ErrorMessage returns Err's message or "" when Err is nil.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
