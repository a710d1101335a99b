package report

import "fmt"

// Summary aggregates verdicts over one run.
type Summary struct {
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
	TimedOut    int `json:"timed_out"`
	SpawnFailed int `json:"spawn_failed"`
	Internal    int `json:"internal"`
	Total       int `json:"total"`
}

// Add counts one verdict.
func (s *Summary) Add(v Verdict) {
	s.Total++
	switch v {
	case Pass:
		s.Passed++
	case Fail:
		s.Failed++
	case Timeout:
		s.TimedOut++
	case SpawnFailure:
		s.SpawnFailed++
	default:
		s.Internal++
	}
}

// OK reports whether every counted case passed. An empty run is OK.
func (s Summary) OK() bool {
	return s.Passed == s.Total
}

// NotPassed returns the number of cases that did not pass.
func (s Summary) NotPassed() int {
	return s.Total - s.Passed
}

// String renders the summary line.
func (s Summary) String() string {
	return fmt.Sprintf("Summary: %d passed, %d failed, %d timed out, %d spawn failures, %d internal, %d total",
		s.Passed, s.Failed, s.TimedOut, s.SpawnFailed, s.Internal, s.Total)
}
