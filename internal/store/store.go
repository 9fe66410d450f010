// Package store is the run ledger: one row per backfill run and one per pass
// executed within it.
package store

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one execution of a plan against an input table.
type Run struct {
	ID         string       `json:"id"`
	Plan       string       `json:"plan"`
	Input      string       `json:"input"`
	Status     RunStatus    `json:"status"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Passes     []PassRecord `json:"passes,omitempty"`
}

// PassRecord is the outcome of one pass of a run.
type PassRecord struct {
	ID         string `json:"id"`
	RunID      string `json:"run_id"`
	Seq        int    `json:"seq"`
	Name       string `json:"name"`
	Column     string `json:"column,omitempty"`
	RowsIn     int    `json:"rows_in"`
	RowsOut    int    `json:"rows_out"`
	Filled     int    `json:"filled"`
	Skipped    int    `json:"skipped"`
	DurationMs int64  `json:"duration_ms"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Plan   string    `json:"plan,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// Ledger persists runs and their passes.
type Ledger interface {
	CreateRun(ctx context.Context, plan, input string) (*Run, error)
	RecordPass(ctx context.Context, runID string, pass PassRecord) (*PassRecord, error)
	FinishRun(ctx context.Context, runID string, status RunStatus, errMsg string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
