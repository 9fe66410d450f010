// Package pipeline runs the passes of a backfill plan over an indicator
// table. Each pass takes ownership of the table it receives and returns a
// new one; no two passes share a table.
package pipeline

import (
	"context"
	"time"

	"github.com/sells-group/turnout-prep/internal/election"
	"github.com/sells-group/turnout-prep/internal/extrapolate"
	"github.com/sells-group/turnout-prep/internal/indicator"
	"github.com/sells-group/turnout-prep/internal/plan"
	"github.com/sells-group/turnout-prep/internal/reconcile"
)

// PassStats is the outcome of one pass.
type PassStats struct {
	Name     string
	Column   string
	RowsIn   int
	RowsOut  int
	Filled   int // cells written, rows added or columns added, by pass kind
	Skipped  int // entities that produced no result
	Duration time.Duration
}

// Pass transforms a table.
type Pass interface {
	Name() string
	Column() string
	Apply(ctx context.Context, t *indicator.Table) (*indicator.Table, PassStats, error)
}

func newStats(p Pass, in, out *indicator.Table) PassStats {
	st := PassStats{Name: p.Name(), Column: p.Column(), RowsIn: in.Len()}
	if out != nil {
		st.RowsOut = out.Len()
	}
	return st
}

// --- floor_fill ---

type floorFillPass struct {
	batch  *extrapolate.Batch
	column string
	spec   extrapolate.FloorSpec
}

func (p *floorFillPass) Name() string   { return plan.KindFloorFill }
func (p *floorFillPass) Column() string { return p.column }

func (p *floorFillPass) Apply(ctx context.Context, t *indicator.Table) (*indicator.Table, PassStats, error) {
	updates, bs, err := p.batch.FloorFillAll(ctx, t, p.column, p.spec)
	if err != nil {
		return nil, PassStats{}, err
	}
	out, written, err := reconcile.Apply(t, p.column, updates)
	if err != nil {
		return nil, PassStats{}, err
	}
	st := newStats(p, t, out)
	st.Filled, st.Skipped = written, bs.Skipped
	return out, st, nil
}

// --- range_fill ---

type rangeFillPass struct {
	batch  *extrapolate.Batch
	column string
	spec   extrapolate.RangeSpec
	codes  []string
}

func (p *rangeFillPass) Name() string   { return plan.KindRangeFill }
func (p *rangeFillPass) Column() string { return p.column }

func (p *rangeFillPass) Apply(ctx context.Context, t *indicator.Table) (*indicator.Table, PassStats, error) {
	updates, bs, err := p.batch.RangeFillAll(ctx, t, p.column, p.spec, p.codes)
	if err != nil {
		return nil, PassStats{}, err
	}
	out, written, err := reconcile.Apply(t, p.column, updates)
	if err != nil {
		return nil, PassStats{}, err
	}
	st := newStats(p, t, out)
	st.Filled, st.Skipped = written, bs.Skipped
	return out, st, nil
}

// --- backcast ---

type backcastPass struct {
	batch  *extrapolate.Batch
	column string
	spec   extrapolate.BackcastSpec
}

func (p *backcastPass) Name() string   { return plan.KindBackcast }
func (p *backcastPass) Column() string { return p.column }

func (p *backcastPass) Apply(ctx context.Context, t *indicator.Table) (*indicator.Table, PassStats, error) {
	forecasts, bs, err := p.batch.BackcastAll(ctx, t, p.column, p.spec)
	if err != nil {
		return nil, PassStats{}, err
	}
	out, written, err := reconcile.Apply(t, p.column, extrapolate.ForecastUpdates(forecasts, p.spec.NearestYear))
	if err != nil {
		return nil, PassStats{}, err
	}
	st := newStats(p, t, out)
	st.Filled, st.Skipped = written, bs.Skipped
	return out, st, nil
}

// --- synth_year ---

type synthPass struct {
	spec reconcile.SynthSpec
}

func (p *synthPass) Name() string   { return plan.KindSynthYear }
func (p *synthPass) Column() string { return "" }

func (p *synthPass) Apply(ctx context.Context, t *indicator.Table) (*indicator.Table, PassStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, PassStats{}, err
	}
	out, added, err := reconcile.SynthesizeYear(t, p.spec)
	if err != nil {
		return nil, PassStats{}, err
	}
	st := newStats(p, t, out)
	st.Filled = added
	return out, st, nil
}

// --- voivodeship_join ---

type voivodeshipPass struct {
	source *indicator.Table
	column string
}

func (p *voivodeshipPass) Name() string   { return plan.KindVoivodeshipJoin }
func (p *voivodeshipPass) Column() string { return p.column }

func (p *voivodeshipPass) Apply(ctx context.Context, t *indicator.Table) (*indicator.Table, PassStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, PassStats{}, err
	}
	out, matched, err := reconcile.BroadcastVoivodeship(t, p.source, p.column)
	if err != nil {
		return nil, PassStats{}, err
	}
	st := newStats(p, t, out)
	st.Filled, st.Skipped = matched, out.Len()-matched
	return out, st, nil
}

// --- lag_features ---

type lagPass struct {
	columns []string
}

func (p *lagPass) Name() string   { return plan.KindLagFeatures }
func (p *lagPass) Column() string { return "" }

func (p *lagPass) Apply(ctx context.Context, t *indicator.Table) (*indicator.Table, PassStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, PassStats{}, err
	}
	out, err := election.LagFeatures(t, p.columns)
	if err != nil {
		return nil, PassStats{}, err
	}
	st := newStats(p, t, out)
	st.Filled = 2 * len(p.columns)
	return out, st, nil
}
