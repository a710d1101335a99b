package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ifjconform/internal/executor"
	"github.com/roach88/ifjconform/internal/registry"
	"github.com/roach88/ifjconform/internal/report"
	"github.com/roach88/ifjconform/internal/taxonomy"
)

// recordRun writes a complete run with the given results.
func recordRun(t *testing.T, s *Store, id string, started time.Time, results ...executor.Result) report.Summary {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, testRunInfo(id, started)))

	var summary report.Summary
	for seq, res := range results {
		v := report.Evaluate(res)
		summary.Add(v)
		require.NoError(t, s.RecordResult(ctx, id, seq, res, v))
	}
	require.NoError(t, s.FinishRun(ctx, id, summary, started.Add(time.Minute)))
	return summary
}

func TestGetRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	summary := recordRun(t, s, "run-1", testStart,
		executor.Result{
			Case:     registry.TestCase{Source: "a.ifj24", Expected: taxonomy.Success},
			Observed: observed(taxonomy.Success),
		},
		executor.Result{
			Case:     registry.TestCase{Source: "b.ifj24", Expected: taxonomy.LexicalError},
			TimedOut: true,
		},
	)

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.ID)
	assert.True(t, run.StartedAt.Equal(testStart))
	require.True(t, run.Finished())
	assert.True(t, run.FinishedAt.Equal(testStart.Add(time.Minute)))
	assert.Equal(t, "./ifj24", run.Tool)
	assert.Equal(t, "/tmp/tests", run.Root)
	assert.Equal(t, 2, run.Workers)
	assert.Equal(t, 5*time.Second, run.Timeout)
	assert.Equal(t, 3, run.Cases)
	assert.Equal(t, summary, run.Summary)
	assert.Equal(t, report.Summary{Passed: 1, TimedOut: 1, Total: 2}, run.Summary)
}

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetRun(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestGetRun_Unfinished(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.BeginRun(context.Background(), testRunInfo("run-1", testStart)))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.False(t, run.Finished())
	assert.Equal(t, report.Summary{}, run.Summary)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	recordRun(t, s, "run-a", testStart)
	recordRun(t, s, "run-c", testStart.Add(2*time.Hour))
	recordRun(t, s, "run-b", testStart.Add(time.Hour))

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
	assert.Equal(t, "run-a", runs[2].ID)

	limited, err := s.ListRuns(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestRunResults_RegistryOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, testRunInfo("run-1", testStart)))

	// Written out of order, as a pooled run could if recorded directly.
	second := executor.Result{
		Case:        registry.TestCase{Source: "b.ifj24", Expected: taxonomy.SyntacticError},
		SpawnFailed: true,
		Failure:     executor.FailureMissingSource,
		Err:         errors.New("failed to open source: no such file"),
	}
	first := executor.Result{
		Case:      registry.TestCase{Source: "a.ifj24", Expected: taxonomy.SyntacticError},
		Observed:  observed(taxonomy.Success),
		Stderr:    "warning\n",
		Truncated: true,
		Duration:  1500 * time.Millisecond,
	}
	require.NoError(t, s.RecordResult(ctx, "run-1", 1, second, report.SpawnFailure))
	require.NoError(t, s.RecordResult(ctx, "run-1", 0, first, report.Fail))

	results, err := s.RunResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	a := results[0]
	assert.Equal(t, 0, a.Seq)
	assert.Equal(t, "a.ifj24", a.Source)
	assert.Equal(t, taxonomy.SyntacticError, a.Expected)
	require.NotNil(t, a.Observed)
	assert.Equal(t, taxonomy.Success, *a.Observed)
	assert.Equal(t, report.Fail, a.Verdict)
	assert.Equal(t, "warning\n", a.Stderr)
	assert.True(t, a.Truncated)
	assert.Equal(t, 1500*time.Millisecond, a.Duration)

	b := results[1]
	assert.Equal(t, "b.ifj24", b.Source)
	assert.Nil(t, b.Observed)
	assert.Equal(t, report.SpawnFailure, b.Verdict)
	assert.Equal(t, "missing_source", b.Failure)
	assert.Equal(t, "failed to open source: no such file", b.Error)
}

func TestRunResults_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.RunResults(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestCaseHistory(t *testing.T) {
	s := createTestStore(t)
	pass := executor.Result{
		Case:     registry.TestCase{Source: "a.ifj24", Expected: taxonomy.Success},
		Observed: observed(taxonomy.Success),
	}
	fail := executor.Result{
		Case:     registry.TestCase{Source: "a.ifj24", Expected: taxonomy.Success},
		Observed: observed(taxonomy.LexicalError),
	}
	other := executor.Result{
		Case:     registry.TestCase{Source: "b.ifj24", Expected: taxonomy.Success},
		Observed: observed(taxonomy.Success),
	}
	recordRun(t, s, "run-1", testStart, fail, other)
	recordRun(t, s, "run-2", testStart.Add(time.Hour), pass, other)

	history, err := s.CaseHistory(context.Background(), "a.ifj24", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-2", history[0].RunID)
	assert.Equal(t, report.Pass, history[0].Verdict)
	assert.Equal(t, "run-1", history[1].RunID)
	assert.Equal(t, report.Fail, history[1].Verdict)

	latest, err := s.CaseHistory(context.Background(), "a.ifj24", 1)
	require.NoError(t, err)
	assert.Len(t, latest, 1)
}
