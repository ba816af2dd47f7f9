// Package history keeps every run and outcome in a local SQLite database, so
// an operator can answer "what did the robot do to order X last week" after
// the CSV logs have been moved around.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/sap-date-robot/internal/types"
)

// timeLayout sorts lexically in chronological order; times are stored in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when no run matches an ID prefix.
var ErrRunNotFound = errors.New("run not found")

// Store is the history database.
type Store struct {
	db *sql.DB
}

// Run is one stored run.
type Run struct {
	types.Summary
	Finished bool
}

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  input_file TEXT NOT NULL,
  started_at TEXT NOT NULL,
  finished_at TEXT,
  total INTEGER NOT NULL DEFAULT 0,
  updated INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  warnings INTEGER NOT NULL DEFAULT 0,
  errors INTEGER NOT NULL DEFAULT 0,
  not_attempted INTEGER NOT NULL DEFAULT 0,
  cancelled INTEGER NOT NULL DEFAULT 0,
  aborted INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS outcomes (
  id TEXT PRIMARY KEY,
  run_id TEXT NOT NULL REFERENCES runs(id),
  seq INTEGER NOT NULL,
  source_row INTEGER NOT NULL,
  order_id TEXT NOT NULL,
  line_number INTEGER NOT NULL,
  target_date TEXT NOT NULL,
  status TEXT NOT NULL,
  message TEXT NOT NULL,
  recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS outcomes_run ON outcomes(run_id, seq);
CREATE INDEX IF NOT EXISTS outcomes_order ON outcomes(order_id, line_number);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create history tables: %w", err)
	}
	return nil
}

// StartRun records a new run.
func (s *Store) StartRun(ctx context.Context, run types.RunInfo) error {
	const stmt = `INSERT INTO runs (id, input_file, started_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, stmt, run.RunID, run.InputFile, run.StartedAt.UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordOutcome appends one outcome to a run.
func (s *Store) RecordOutcome(ctx context.Context, runID string, o types.UpdateOutcome) error {
	const stmt = `
INSERT INTO outcomes (id, run_id, seq, source_row, order_id, line_number, target_date, status, message, recorded_at)
VALUES (?, ?, (SELECT COUNT(*) FROM outcomes WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?)
`
	_, err := s.db.ExecContext(ctx, stmt,
		o.ID,
		runID,
		runID,
		o.Request.RowNumber,
		o.Request.OrderID,
		o.Request.LineNumber,
		o.Request.TargetDate,
		string(o.Status),
		o.Message,
		o.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, summary types.Summary) error {
	const stmt = `
UPDATE runs SET
  finished_at=?, total=?, updated=?, skipped=?, warnings=?, errors=?,
  not_attempted=?, cancelled=?, aborted=?
WHERE id=?
`
	res, err := s.db.ExecContext(ctx, stmt,
		summary.FinishedAt.UTC().Format(timeLayout),
		summary.Total,
		summary.Updated,
		summary.Skipped,
		summary.Warnings,
		summary.Errors,
		summary.NotAttempted,
		summary.Cancelled,
		summary.Aborted,
		summary.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", summary.RunID, ErrRunNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 20
	}
	const query = `
SELECT id, input_file, started_at, finished_at, total, updated, skipped, warnings,
       errors, not_attempted, cancelled, aborted
FROM runs ORDER BY started_at DESC LIMIT ?
`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// FindRun resolves a run ID or an unambiguous ID prefix.
func (s *Store) FindRun(ctx context.Context, idPrefix string) (Run, error) {
	const query = `
SELECT id, input_file, started_at, finished_at, total, updated, skipped, warnings,
       errors, not_attempted, cancelled, aborted
FROM runs WHERE id LIKE ? || '%' ORDER BY started_at DESC LIMIT 2
`
	rows, err := s.db.QueryContext(ctx, query, idPrefix)
	if err != nil {
		return Run{}, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("find run: %w", err)
	}

	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%q: %w", idPrefix, ErrRunNotFound)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("run ID prefix %q is ambiguous", idPrefix)
	}
}

// RunOutcomes returns the outcomes of a run in processing order.
func (s *Store) RunOutcomes(ctx context.Context, runID string) ([]types.UpdateOutcome, error) {
	const query = `
SELECT id, source_row, order_id, line_number, target_date, status, message, recorded_at
FROM outcomes WHERE run_id = ? ORDER BY seq
`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []types.UpdateOutcome
	for rows.Next() {
		var (
			o          types.UpdateOutcome
			status     string
			recordedAt string
		)
		if err := rows.Scan(&o.ID, &o.Request.RowNumber, &o.Request.OrderID, &o.Request.LineNumber,
			&o.Request.TargetDate, &status, &o.Message, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Status = types.Status(status)
		o.Timestamp, _ = time.Parse(timeLayout, recordedAt)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return outcomes, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(&run.RunID, &run.InputFile, &startedAt, &finishedAt,
		&run.Total, &run.Updated, &run.Skipped, &run.Warnings, &run.Errors, &run.NotAttempted,
		&run.Cancelled, &run.Aborted)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt, _ = time.Parse(timeLayout, startedAt)
	if finishedAt.Valid {
		run.Finished = true
		run.FinishedAt, _ = time.Parse(timeLayout, finishedAt.String)
	}
	return run, nil
}
