package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/turnout-prep/internal/extrapolate"
	"github.com/sells-group/turnout-prep/internal/indicator"
	"github.com/sells-group/turnout-prep/internal/plan"
	"github.com/sells-group/turnout-prep/internal/reconcile"
	"github.com/sells-group/turnout-prep/internal/trend"
)

// SourceOpener loads a secondary table named by a plan pass.
type SourceOpener func(ctx context.Context, path, sheet string) (*indicator.Table, error)

// OpenSource reads a voivodeship-level file with its codes padded to two
// digits.
func OpenSource(ctx context.Context, path, sheet string) (*indicator.Table, error) {
	return indicator.ReadFile(ctx, path, indicator.FileOptions{Sheet: sheet, CodeWidth: 2})
}

// Deps carries what the passes need beyond the plan.
type Deps struct {
	Batch *extrapolate.Batch
	ARIMA trend.AutoConfig
	Open  SourceOpener
}

// Build turns a validated plan into passes. Fill passes over several columns
// become one pass per column; indicator policies are resolved here, once.
func Build(ctx context.Context, p *plan.Plan, deps Deps) ([]Pass, error) {
	if deps.Batch == nil {
		deps.Batch = extrapolate.NewBatch(0)
	}
	if deps.Open == nil {
		deps.Open = OpenSource
	}

	sources := make(map[string]*indicator.Table)
	var passes []Pass
	for i, ps := range p.Passes {
		switch ps.Kind {
		case plan.KindFloorFill:
			for _, col := range ps.Columns {
				spec := extrapolate.FloorSpec{
					TrainYears:    ps.TrainYears,
					TargetYears:   ps.TargetYears,
					ReferenceYear: ps.ReferenceYear,
				}
				pol := p.Policy(col)
				if len(pol.TrainYears) > 0 {
					spec.TrainYears = pol.TrainYears
				}
				if pol.ReferenceYear != 0 {
					spec.ReferenceYear = pol.ReferenceYear
				}
				passes = append(passes, &floorFillPass{batch: deps.Batch, column: col, spec: spec})
			}

		case plan.KindRangeFill:
			for _, col := range ps.Columns {
				passes = append(passes, &rangeFillPass{
					batch:  deps.Batch,
					column: col,
					spec:   extrapolate.RangeSpec{From: ps.From, To: ps.To, Cutoff: ps.Cutoff},
					codes:  ps.Codes,
				})
			}

		case plan.KindBackcast:
			for _, col := range ps.Columns {
				passes = append(passes, &backcastPass{
					batch:  deps.Batch,
					column: col,
					spec: extrapolate.BackcastSpec{
						NearestYear: ps.NearestYear,
						Periods:     ps.Periods,
						Config:      deps.ARIMA,
					},
				})
			}

		case plan.KindSynthYear:
			spec := reconcile.SynthSpec{
				Target:  ps.Target,
				YearA:   ps.YearA,
				YearB:   ps.YearB,
				Columns: ps.Columns,
				Clip:    make(map[string]reconcile.Clip, len(p.Indicators)),
			}
			for name, ind := range p.Indicators {
				spec.Clip[name] = reconcile.Clip(ind.NonNegative)
			}
			passes = append(passes, &synthPass{spec: spec})

		case plan.KindVoivodeshipJoin:
			src, ok := sources[ps.Source+"|"+ps.Sheet]
			if !ok {
				var err error
				if src, err = deps.Open(ctx, ps.Source, ps.Sheet); err != nil {
					return nil, eris.Wrapf(err, "pipeline: pass %d: open %s", i+1, ps.Source)
				}
				sources[ps.Source+"|"+ps.Sheet] = src
			}
			for _, col := range ps.Columns {
				passes = append(passes, &voivodeshipPass{source: src, column: col})
			}

		case plan.KindLagFeatures:
			passes = append(passes, &lagPass{columns: ps.Columns})

		default:
			return nil, eris.Errorf("pipeline: pass %d: unknown kind %q", i+1, ps.Kind)
		}
	}
	return passes, nil
}
