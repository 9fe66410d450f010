package extrapolate

import (
	"context"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/turnout-prep/internal/indicator"
	"github.com/sells-group/turnout-prep/internal/trend"
)

// Stats summarizes a batch run.
type Stats struct {
	Entities  int
	Succeeded int
	Skipped   int
}

// Batch runs per-entity fits concurrently. Entities are independent: a
// failure in one never aborts the others.
type Batch struct {
	Workers int // <= 0 means runtime.NumCPU()
}

// NewBatch returns a Batch with the given worker limit.
func NewBatch(workers int) *Batch {
	return &Batch{Workers: workers}
}

func (b *Batch) limit() int {
	if b == nil || b.Workers <= 0 {
		return runtime.NumCPU()
	}
	return b.Workers
}

// Run applies fn to every entity of t that passes filter (nil = all) and
// returns the successful results ordered by code. An error from fn means
// "no result" for that entity. Run itself only fails on a missing column or
// a cancelled context; on cancellation the results collected so far are
// returned alongside the error.
func Run[T any](ctx context.Context, b *Batch, t *indicator.Table, column string, filter func(code string) bool, name string, fn func(code string, series []trend.Point) (T, error)) ([]T, Stats, error) {
	ci, err := t.MustColumn(column)
	if err != nil {
		return nil, Stats{}, err
	}

	groups := t.Group()
	codes := make([]string, 0, len(groups))
	for code := range groups {
		if filter == nil || filter(code) {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit())

	type keyed struct {
		code string
		val  T
	}
	var (
		mu      sync.Mutex
		results []keyed
		skipped atomic.Int64
	)

	for _, code := range codes {
		series := Observed(t, groups[code], ci)
		g.Go(func() error {
			if gCtx.Err() != nil {
				skipped.Add(1)
				return nil
			}
			val, fitErr := fn(code, series)
			if fitErr != nil {
				skipped.Add(1)
				zap.L().Debug(name+": entity skipped",
					zap.String("terc_code", code),
					zap.String("column", column),
					zap.Error(fitErr),
				)
				return nil
			}
			mu.Lock()
			results = append(results, keyed{code: code, val: val})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(results, func(a, b keyed) int { return strings.Compare(a.code, b.code) })
	out := make([]T, len(results))
	for i, r := range results {
		out[i] = r.val
	}

	stats := Stats{
		Entities:  len(codes),
		Succeeded: len(out),
		Skipped:   int(skipped.Load()),
	}
	zap.L().Info(name+": batch complete",
		zap.String("column", column),
		zap.Int("entities", stats.Entities),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("skipped", stats.Skipped),
	)

	return out, stats, ctx.Err()
}

// Observed extracts the non-missing values of column ci at the given row
// positions as year-ordered points.
func Observed(t *indicator.Table, rows []int, ci int) []trend.Point {
	points := make([]trend.Point, 0, len(rows))
	for _, i := range rows {
		r := t.Rows[i]
		if indicator.IsMissing(r.Values[ci]) {
			continue
		}
		points = append(points, trend.Point{Year: r.Year, Value: r.Values[ci]})
	}
	slices.SortFunc(points, func(a, b trend.Point) int { return a.Year - b.Year })
	return points
}

// BackcastSpec configures a whole-table ARIMA backcast. Observed values after
// NearestYear train the model; Periods years ending at NearestYear are filled.
type BackcastSpec struct {
	NearestYear int
	Periods     int
	Config      trend.AutoConfig
}

// BackcastAll backcasts every entity of t and returns the successful
// forecasts.
func (b *Batch) BackcastAll(ctx context.Context, t *indicator.Table, column string, spec BackcastSpec) ([]Forecast, Stats, error) {
	return Run(ctx, b, t, column, nil, "backcast", func(code string, series []trend.Point) (Forecast, error) {
		values := make([]float64, 0, len(series))
		for _, p := range series {
			if p.Year > spec.NearestYear {
				values = append(values, p.Value)
			}
		}
		f, err := backcast(code, values, spec.Periods, spec.Config)
		if err != nil {
			return Forecast{}, err
		}
		return *f, nil
	})
}

// RangeFillAll runs RangeFill for the given codes (all entities when codes
// is empty) and merges the updates.
func (b *Batch) RangeFillAll(ctx context.Context, t *indicator.Table, column string, spec RangeSpec, codes []string) (indicator.Updates, Stats, error) {
	if err := spec.Validate(); err != nil {
		return nil, Stats{}, err
	}
	var filter func(string) bool
	if len(codes) > 0 {
		filter = func(code string) bool { return slices.Contains(codes, code) }
	}
	results, stats, err := Run(ctx, b, t, column, filter, "range_fill", func(code string, series []trend.Point) (indicator.Updates, error) {
		return RangeFill(code, series, spec)
	})
	return mergeUpdates(results), stats, err
}

// FloorFillAll runs FloorFill for every entity and merges the updates.
func (b *Batch) FloorFillAll(ctx context.Context, t *indicator.Table, column string, spec FloorSpec) (indicator.Updates, Stats, error) {
	if err := spec.Validate(); err != nil {
		return nil, Stats{}, err
	}
	results, stats, err := Run(ctx, b, t, column, nil, "floor_fill", func(code string, series []trend.Point) (indicator.Updates, error) {
		return FloorFill(code, series, spec)
	})
	return mergeUpdates(results), stats, err
}

// ForecastUpdates flattens forecasts into keyed updates.
func ForecastUpdates(forecasts []Forecast, nearestYear int) indicator.Updates {
	out := make(indicator.Updates)
	for _, f := range forecasts {
		out.Merge(f.Updates(nearestYear))
	}
	return out
}

func mergeUpdates(parts []indicator.Updates) indicator.Updates {
	out := make(indicator.Updates)
	for _, p := range parts {
		out.Merge(p)
	}
	return out
}
