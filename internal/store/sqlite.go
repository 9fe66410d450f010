package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Ledger using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Ledger = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	plan        TEXT NOT NULL,
	input       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_passes (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	name        TEXT NOT NULL,
	column_name TEXT NOT NULL DEFAULT '',
	rows_in     INTEGER NOT NULL DEFAULT 0,
	rows_out    INTEGER NOT NULL DEFAULT 0,
	filled      INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_plan ON runs(plan);
CREATE INDEX IF NOT EXISTS idx_run_passes_run_id ON run_passes(run_id);
`

// Migrate creates the ledger tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a running run.
func (s *SQLiteStore) CreateRun(ctx context.Context, plan, input string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, plan, input, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, plan, input, string(RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &Run{ID: id, Plan: plan, Input: input, Status: RunStatusRunning, StartedAt: now}, nil
}

// RecordPass appends a pass to a run. Seq is assigned in insertion order.
func (s *SQLiteStore) RecordPass(ctx context.Context, runID string, pass PassRecord) (*PassRecord, error) {
	pass.ID = uuid.New().String()
	pass.RunID = runID

	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM run_passes WHERE run_id = ?`, runID)
	if err := row.Scan(&pass.Seq); err != nil {
		return nil, eris.Wrapf(err, "sqlite: next pass seq for run %s", runID)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_passes (id, run_id, seq, name, column_name, rows_in, rows_out, filled, skipped, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pass.ID, runID, pass.Seq, pass.Name, pass.Column,
		pass.RowsIn, pass.RowsOut, pass.Filled, pass.Skipped, pass.DurationMs,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert pass for run %s", runID)
	}
	return &pass, nil
}

// FinishRun sets the final status of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status RunStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

// GetRun returns a run with its passes in order.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, plan, input, status, error, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, seq, name, column_name, rows_in, rows_out, filled, skipped, duration_ms
		 FROM run_passes WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list passes for run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var p PassRecord
		if err := rows.Scan(&p.ID, &p.RunID, &p.Seq, &p.Name, &p.Column,
			&p.RowsIn, &p.RowsOut, &p.Filled, &p.Skipped, &p.DurationMs); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pass")
		}
		r.Passes = append(r.Passes, p)
	}
	return r, eris.Wrap(rows.Err(), "sqlite: list passes iterate")
}

// ListRuns returns runs newest first, without their passes.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, plan, input, status, error, started_at, finished_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Plan != "" {
		query += ` AND plan = ?`
		args = append(args, filter.Plan)
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Plan, &r.Input, &r.Status, &r.Error, &r.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
