package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/ifjconform/internal/executor"
	"github.com/roach88/ifjconform/internal/harness"
	"github.com/roach88/ifjconform/internal/report"
)

var _ harness.Recorder = (*Store)(nil)

// BeginRun inserts the run row. A run ID may only be recorded once.
func (s *Store) BeginRun(ctx context.Context, info harness.RunInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, tool, root, workers, timeout_ms, cases)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		info.ID,
		formatTime(info.StartedAt),
		info.Tool,
		info.Root,
		info.Workers,
		info.Timeout.Milliseconds(),
		info.Total,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordResult inserts one case result.
// Uses ON CONFLICT DO NOTHING for idempotency - a (run, seq) pair is
// recorded once and later writes are silently ignored.
// The run must already exist (foreign key constraint).
func (s *Store) RecordResult(ctx context.Context, runID string, seq int, res executor.Result, v report.Verdict) error {
	var observed any
	if res.Observed != nil {
		observed = int(*res.Observed)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results
		(run_id, seq, source, expected, observed, verdict, failure, error, stderr, truncated, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID,
		seq,
		res.Case.Source,
		int(res.Case.Expected),
		observed,
		string(v),
		string(res.Failure),
		res.ErrorMessage(),
		res.Stderr,
		res.Truncated,
		res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record result %s: %w", res.Case.Source, err)
	}
	return nil
}

// FinishRun stores the summary and the finish time of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, summary report.Summary, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, passed = ?, failed = ?, timed_out = ?,
		    spawn_failed = ?, internal = ?, total = ?
		WHERE id = ?
	`,
		formatTime(finishedAt),
		summary.Passed,
		summary.Failed,
		summary.TimedOut,
		summary.SpawnFailed,
		summary.Internal,
		summary.Total,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// timeFormat is fixed width so timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}
