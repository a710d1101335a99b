// Package store records conformance runs in SQLite.
//
// Each run is one row in runs, keyed by its UUIDv7 run ID, and each
// reported case is one row in results keyed by (run_id, seq), where seq is
// the case's position in the registry. Results are always read back in seq
// order, so a recorded run lists exactly like its report.
//
// # Database Configuration
//
//   - WAL mode: history can be read while a run is writing
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: results cannot outlive their run
//
// Timestamps are stored as fixed-width RFC 3339 text in UTC.
package store
