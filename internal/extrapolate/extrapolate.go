// Package extrapolate fills missing historical indicator years for one county
// at a time, and runs those per-county fits over a whole table.
package extrapolate

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/turnout-prep/internal/indicator"
	"github.com/sells-group/turnout-prep/internal/trend"
)

// RangeSpec configures a bounded backward fill: the trend is trained on
// observed years in [To+1, Cutoff] and evaluated at every year in [From, To].
type RangeSpec struct {
	From   int
	To     int
	Cutoff int
}

// Validate checks the year bounds.
func (s RangeSpec) Validate() error {
	if s.From > s.To {
		return eris.Errorf("extrapolate: range from %d is after to %d", s.From, s.To)
	}
	if s.Cutoff <= s.To {
		return eris.Errorf("extrapolate: cutoff %d must be after to %d", s.Cutoff, s.To)
	}
	return nil
}

// FloorSpec configures a short-window fill with a floor fallback. A
// prediction <= 0 is replaced by the observed value at ReferenceYear.
type FloorSpec struct {
	TrainYears    []int
	TargetYears   []int
	ReferenceYear int
}

// DefaultFloorSpec trains on 2002-2004 and fills 2001 and 2000, falling back
// to the 2002 value.
func DefaultFloorSpec() FloorSpec {
	return FloorSpec{
		TrainYears:    []int{2002, 2003, 2004},
		TargetYears:   []int{2001, 2000},
		ReferenceYear: 2002,
	}
}

// Validate checks the spec is usable.
func (s FloorSpec) Validate() error {
	if len(s.TrainYears) < trend.MinLinearPoints {
		return eris.Errorf("extrapolate: floor fill needs at least %d training years", trend.MinLinearPoints)
	}
	if len(s.TargetYears) == 0 {
		return eris.New("extrapolate: floor fill has no target years")
	}
	return nil
}

// RangeFill extrapolates one entity backwards over [From, To]. Every target
// year gets round(prediction, 1); the reconciler decides which keys exist.
func RangeFill(code string, series []trend.Point, spec RangeSpec) (indicator.Updates, error) {
	var train []trend.Point
	for _, p := range series {
		if p.Year > spec.To && p.Year <= spec.Cutoff {
			train = append(train, p)
		}
	}
	fit, err := trend.FitLinear(train)
	if err != nil {
		return nil, eris.Wrapf(err, "extrapolate: range fill %s", code)
	}

	out := make(indicator.Updates, spec.To-spec.From+1)
	for year := spec.From; year <= spec.To; year++ {
		out[indicator.Key{Code: code, Year: year}] = Round1(fit.Predict(year))
	}
	return out, nil
}

// FloorFill extrapolates one entity to each target year from a short training
// window. The floor applies per target year: a non-positive prediction takes
// the reference value instead, and is left unfilled when no reference exists.
func FloorFill(code string, series []trend.Point, spec FloorSpec) (indicator.Updates, error) {
	var train []trend.Point
	ref := math.NaN()
	for _, p := range series {
		if slices.Contains(spec.TrainYears, p.Year) {
			train = append(train, p)
		}
		if p.Year == spec.ReferenceYear {
			ref = p.Value
		}
	}
	fit, err := trend.FitLinear(train)
	if err != nil {
		return nil, eris.Wrapf(err, "extrapolate: floor fill %s", code)
	}

	out := make(indicator.Updates, len(spec.TargetYears))
	for _, year := range spec.TargetYears {
		v := fit.Predict(year)
		if v <= 0 {
			if math.IsNaN(ref) {
				continue
			}
			v = ref
		}
		out[indicator.Key{Code: code, Year: year}] = Round1(v)
	}
	return out, nil
}

// Forecast is one entity's backcast. Values[0] belongs to the year nearest the
// observed data, each following value one year earlier.
type Forecast struct {
	Code   string
	Values []float64
}

// Updates keys the forecast by year, counting down from nearestYear.
func (f Forecast) Updates(nearestYear int) indicator.Updates {
	out := make(indicator.Updates, len(f.Values))
	for i, v := range f.Values {
		out[indicator.Key{Code: f.Code, Year: nearestYear - i}] = v
	}
	return out
}

// Backcast forecasts periods values backwards in time by reversing the
// chronologically ordered values and fitting AutoARIMA to the reversed series.
// Predictions are rounded to whole units. It reports false on short series or
// any fitting failure; callers leave the gap unfilled.
func Backcast(code string, values []float64, periods int, cfg trend.AutoConfig) (*Forecast, bool) {
	f, err := backcast(code, values, periods, cfg)
	return f, err == nil
}

func backcast(code string, values []float64, periods int, cfg trend.AutoConfig) (*Forecast, error) {
	if periods <= 0 {
		return nil, eris.Errorf("extrapolate: backcast %s: periods must be positive", code)
	}
	if len(values) < trend.MinARIMAObservations {
		return nil, eris.Wrapf(trend.ErrInsufficientData, "extrapolate: backcast %s: %d observations", code, len(values))
	}

	reversed := slices.Clone(values)
	slices.Reverse(reversed)

	model, err := trend.AutoARIMA(reversed, cfg)
	if err != nil {
		return nil, eris.Wrapf(err, "extrapolate: backcast %s", code)
	}

	preds := model.Predict(periods)
	for i, v := range preds {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, eris.Wrapf(trend.ErrModelFit, "extrapolate: backcast %s: non-finite prediction", code)
		}
		preds[i] = math.RoundToEven(v)
	}
	return &Forecast{Code: code, Values: preds}, nil
}

// Round1 rounds half to even at one decimal place.
func Round1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
