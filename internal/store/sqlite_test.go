package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "gus-backfill", "indicators.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	p1, err := st.RecordPass(ctx, run.ID, PassRecord{Name: "floor_fill", Column: "unemployment", RowsIn: 10, RowsOut: 10, Filled: 4, Skipped: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, p1.Seq)
	p2, err := st.RecordPass(ctx, run.ID, PassRecord{Name: "synth_year", RowsIn: 10, RowsOut: 12, Filled: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, p2.Seq)

	require.NoError(t, st.FinishRun(ctx, run.ID, RunStatusComplete, ""))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "gus-backfill", got.Plan)
	assert.Equal(t, "indicators.csv", got.Input)
	assert.Equal(t, RunStatusComplete, got.Status)
	require.NotNil(t, got.FinishedAt)
	require.Len(t, got.Passes, 2)
	assert.Equal(t, "floor_fill", got.Passes[0].Name)
	assert.Equal(t, "unemployment", got.Passes[0].Column)
	assert.Equal(t, 4, got.Passes[0].Filled)
	assert.Equal(t, 12, got.Passes[1].RowsOut)
}

func TestSQLite_FinishRun_Failed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "plan", "in.csv")
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, run.ID, RunStatusFailed, "schema: column not found"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "schema: column not found", got.Error)
	assert.Empty(t, got.Passes)
}

func TestSQLite_FinishRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.FinishRun(context.Background(), "missing", RunStatusComplete, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: missing")
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSQLite_RecordPass_UnknownRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.RecordPass(context.Background(), "missing", PassRecord{Name: "backcast"})
	assert.Error(t, err, "foreign key enforced")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "alpha", "a.csv")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "beta", "b.csv")
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, a.ID, RunStatusComplete, ""))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := st.ListRuns(ctx, RunFilter{Status: RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "alpha", done[0].Plan)

	beta, err := st.ListRuns(ctx, RunFilter{Plan: "beta", Limit: 1})
	require.NoError(t, err)
	require.Len(t, beta, 1)
	assert.Equal(t, RunStatusRunning, beta[0].Status)
	assert.Nil(t, beta[0].FinishedAt)
}
