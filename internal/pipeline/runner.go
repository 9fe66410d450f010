package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/turnout-prep/internal/indicator"
	"github.com/sells-group/turnout-prep/internal/store"
)

// Runner executes passes in order and records them in an optional ledger.
type Runner struct {
	ledger store.Ledger
}

// NewRunner creates a Runner. ledger may be nil.
func NewRunner(ledger store.Ledger) *Runner {
	return &Runner{ledger: ledger}
}

// Result is the outcome of a run.
type Result struct {
	RunID  string
	Table  *indicator.Table
	Passes []PassStats
}

// Run validates t and applies every pass in order. A pass error aborts the
// run; per-entity fitting failures never do, they only show up as skipped.
func (r *Runner) Run(ctx context.Context, planName, input string, t *indicator.Table, passes []Pass) (*Result, error) {
	log := zap.L().With(zap.String("plan", planName), zap.String("input", input))
	log.Info("pipeline: starting run", zap.Int("passes", len(passes)), zap.Int("rows", t.Len()))

	result := &Result{Table: t}
	if r.ledger != nil {
		run, err := r.ledger.CreateRun(ctx, planName, input)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		result.RunID = run.ID
	}

	finish := func(status store.RunStatus, runErr error) {
		if r.ledger == nil {
			return
		}
		msg := ""
		if runErr != nil {
			msg = runErr.Error()
		}
		if err := r.ledger.FinishRun(context.WithoutCancel(ctx), result.RunID, status, msg); err != nil {
			log.Warn("pipeline: failed to finish run", zap.Error(err))
		}
	}

	if err := t.Validate(); err != nil {
		finish(store.RunStatusFailed, err)
		return nil, err
	}

	for i, p := range passes {
		start := time.Now()
		out, st, err := p.Apply(ctx, result.Table)
		st.Duration = time.Since(start)
		if err != nil {
			log.Error("pipeline: pass failed",
				zap.Int("pass", i+1),
				zap.String("name", p.Name()),
				zap.String("column", p.Column()),
				zap.Error(err),
			)
			err = eris.Wrapf(err, "pipeline: pass %d (%s %s)", i+1, p.Name(), p.Column())
			finish(store.RunStatusFailed, err)
			return nil, err
		}

		log.Info("pipeline: pass complete",
			zap.Int("pass", i+1),
			zap.String("name", st.Name),
			zap.String("column", st.Column),
			zap.Int("rows_in", st.RowsIn),
			zap.Int("rows_out", st.RowsOut),
			zap.Int("filled", st.Filled),
			zap.Int("skipped", st.Skipped),
			zap.Int64("duration_ms", st.Duration.Milliseconds()),
		)
		r.record(ctx, result.RunID, st)

		result.Table = out
		result.Passes = append(result.Passes, st)
	}

	finish(store.RunStatusComplete, nil)
	log.Info("pipeline: run complete", zap.Int("rows", result.Table.Len()))
	return result, nil
}

func (r *Runner) record(ctx context.Context, runID string, st PassStats) {
	if r.ledger == nil {
		return
	}
	_, err := r.ledger.RecordPass(ctx, runID, store.PassRecord{
		Name:       st.Name,
		Column:     st.Column,
		RowsIn:     st.RowsIn,
		RowsOut:    st.RowsOut,
		Filled:     st.Filled,
		Skipped:    st.Skipped,
		DurationMs: st.Duration.Milliseconds(),
	})
	if err != nil {
		zap.L().Warn("pipeline: failed to record pass", zap.String("run_id", runID), zap.Error(err))
	}
}
