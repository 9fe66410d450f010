package trend

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
)

// Point is one (year, value) observation.
type Point struct {
	Year  int
	Value float64
}

// MinLinearPoints is the minimum number of observations for a linear fit.
const MinLinearPoints = 2

// Linear is a degree-1 least-squares trend: value = Intercept + Slope*year.
type Linear struct {
	Slope     float64
	Intercept float64
	N         int
}

// FitLinear fits a straight line through points. Points need not be sorted.
// Missing (NaN) values are an error; callers filter them out first.
func FitLinear(points []Point) (Linear, error) {
	if len(points) < MinLinearPoints {
		return Linear{}, eris.Wrapf(ErrInsufficientData, "linear fit needs %d points, got %d", MinLinearPoints, len(points))
	}

	sorted := slices.Clone(points)
	slices.SortFunc(sorted, func(a, b Point) int { return a.Year - b.Year })

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, p := range sorted {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return Linear{}, eris.Wrapf(ErrModelFit, "non-finite value at year %d", p.Year)
		}
		xs[i] = float64(p.Year)
		ys[i] = p.Value
	}
	if sorted[0].Year == sorted[len(sorted)-1].Year {
		return Linear{}, eris.Wrap(ErrInsufficientData, "linear fit needs two distinct years")
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Linear{Slope: beta, Intercept: alpha, N: len(points)}, nil
}

// Predict evaluates the trend at year.
func (l Linear) Predict(year int) float64 {
	return l.Intercept + l.Slope*float64(year)
}
