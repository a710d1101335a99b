package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ifjconform/internal/report"
	"github.com/roach88/ifjconform/internal/taxonomy"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is a recorded run.
type RunRecord struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Tool       string         `json:"tool"`
	Root       string         `json:"root"`
	Workers    int            `json:"workers"`
	Timeout    time.Duration  `json:"timeout_ns"`
	Cases      int            `json:"cases"`
	Summary    report.Summary `json:"summary"`
}

// Finished reports whether the run was closed out with a summary.
func (r RunRecord) Finished() bool {
	return r.FinishedAt != nil
}

// ResultRecord is one recorded case result.
type ResultRecord struct {
	RunID     string         `json:"run_id"`
	Seq       int            `json:"seq"`
	Source    string         `json:"source"`
	Expected  taxonomy.Code  `json:"expected"`
	Observed  *taxonomy.Code `json:"observed,omitempty"`
	Verdict   report.Verdict `json:"verdict"`
	Failure   string         `json:"failure,omitempty"`
	Error     string         `json:"error,omitempty"`
	Stderr    string         `json:"stderr,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
	Duration  time.Duration  `json:"duration_ns"`
}

const runColumns = `id, started_at, finished_at, tool, root, workers, timeout_ms, cases,
	passed, failed, timed_out, spawn_failed, internal, total`

const resultColumns = `run_id, seq, source, expected, observed, verdict, failure, error,
	stderr, truncated, duration_ms`

// ListRuns returns the most recent runs, newest first.
// A limit of zero or less returns every run.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run. Returns ErrRunNotFound if it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// RunResults returns the results of a run in registry order.
// Returns ErrRunNotFound if the run does not exist.
func (s *Store) RunResults(ctx context.Context, runID string) ([]ResultRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+resultColumns+`
		FROM results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return collectResults(rows)
}

// CaseHistory returns the recorded results of one source across runs,
// newest run first. A limit of zero or less returns every result.
func (s *Store) CaseHistory(ctx context.Context, source string, limit int) ([]ResultRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.seq, r.source, r.expected, r.observed, r.verdict, r.failure,
			r.error, r.stderr, r.truncated, r.duration_ms
		FROM results r
		JOIN runs ON runs.id = r.run_id
		WHERE r.source = ?
		ORDER BY runs.started_at DESC, runs.id COLLATE BINARY DESC
		LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, fmt.Errorf("query case history: %w", err)
	}
	return collectResults(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunRecord, error) {
	var (
		run       RunRecord
		started   string
		finished  sql.NullString
		timeoutMS int64
	)
	err := sc.Scan(
		&run.ID, &started, &finished, &run.Tool, &run.Root, &run.Workers, &timeoutMS, &run.Cases,
		&run.Summary.Passed, &run.Summary.Failed, &run.Summary.TimedOut,
		&run.Summary.SpawnFailed, &run.Summary.Internal, &run.Summary.Total,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}

	run.StartedAt, err = parseTime(started)
	if err != nil {
		return RunRecord{}, fmt.Errorf("run %s: started_at: %w", run.ID, err)
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return RunRecord{}, fmt.Errorf("run %s: finished_at: %w", run.ID, err)
		}
		run.FinishedAt = &t
	}
	run.Timeout = time.Duration(timeoutMS) * time.Millisecond
	return run, nil
}

func collectResults(rows *sql.Rows) ([]ResultRecord, error) {
	defer rows.Close()

	results := []ResultRecord{}
	for rows.Next() {
		var (
			rec        ResultRecord
			expected   int
			observed   sql.NullInt64
			verdict    string
			durationMS int64
		)
		err := rows.Scan(
			&rec.RunID, &rec.Seq, &rec.Source, &expected, &observed, &verdict, &rec.Failure,
			&rec.Error, &rec.Stderr, &rec.Truncated, &durationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		rec.Expected = taxonomy.Code(expected)
		if observed.Valid {
			code := taxonomy.Code(observed.Int64)
			rec.Observed = &code
		}
		rec.Verdict = report.Verdict(verdict)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}
