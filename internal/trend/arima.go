package trend

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// Order is a non-seasonal ARIMA(p, d, q) order.
type Order struct {
	P, D, Q int
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// ARIMA is a fitted non-seasonal ARIMA model. Parameters are estimated by
// conditional sum of squares on the d-times differenced series.
type ARIMA struct {
	Order     Order
	Intercept bool
	Const     float64
	AR        []float64
	MA        []float64
	Sigma2    float64
	AIC       float64

	// ModelsEvaluated counts the candidate orders tried by AutoARIMA.
	ModelsEvaluated int

	levels [][]float64 // levels[k] is the series differenced k times
	resid  []float64
}

// FitARIMA fits a fixed order to values. maxIter bounds the optimizer's
// major iterations; hitting the bound fails with ErrModelFit.
func FitARIMA(values []float64, order Order, maxIter int) (*ARIMA, error) {
	if order.P < 0 || order.Q < 0 || order.D < 0 {
		return nil, eris.Errorf("trend: invalid order %s", order)
	}
	if len(values)-order.D < 2 {
		return nil, eris.Wrapf(ErrInsufficientData, "order %s needs at least %d values", order, order.D+2)
	}
	if err := checkFinite(values); err != nil {
		return nil, err
	}
	levels := differenceLevels(values, order.D)
	return fitLevel(levels, order, order.D < 2, maxIter)
}

// Predict returns n forecasts continuing the series past its last value, on
// the original (undifferenced) scale.
func (m *ARIMA) Predict(n int) []float64 {
	if n <= 0 {
		return nil
	}
	top := m.levels[m.Order.D]
	size := len(top)
	w := make([]float64, size, size+n)
	copy(w, top)
	e := make([]float64, size, size+n)
	copy(e, m.resid)

	for range n {
		t := len(w)
		v := m.Const
		for i, phi := range m.AR {
			if j := t - 1 - i; j >= 0 {
				v += phi * w[j]
			}
		}
		for i, theta := range m.MA {
			if j := t - 1 - i; j >= 0 {
				v += theta * e[j]
			}
		}
		w = append(w, v)
		e = append(e, 0)
	}

	fc := w[size:]
	for lvl := m.Order.D - 1; lvl >= 0; lvl-- {
		base := m.levels[lvl]
		acc := base[len(base)-1]
		out := make([]float64, len(fc))
		for i, v := range fc {
			acc += v
			out[i] = acc
		}
		fc = out
	}
	return fc
}

func differenceLevels(values []float64, d int) [][]float64 {
	levels := make([][]float64, d+1)
	levels[0] = append([]float64(nil), values...)
	for k := 1; k <= d; k++ {
		levels[k] = diff(levels[k-1])
	}
	return levels
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.Wrapf(ErrModelFit, "non-finite observation at position %d", i)
		}
	}
	return nil
}

// cssProblem evaluates the conditional sum of squares for one order.
type cssProblem struct {
	w         []float64
	p, q      int
	intercept bool
	cScale    float64
	eps       float64
}

// unpack maps unconstrained optimizer coordinates to model parameters. AR
// and MA coefficients go through partial autocorrelations, which keeps the
// AR part stationary and the MA part invertible.
func (c *cssProblem) unpack(x []float64) (float64, []float64, []float64) {
	var cst float64
	off := 0
	if c.intercept {
		cst = x[0] * c.cScale
		off = 1
	}
	ar := pacfToCoef(x[off : off+c.p])
	ma := pacfToCoef(x[off+c.p : off+c.p+c.q])
	for i := range ma {
		ma[i] = -ma[i]
	}
	return cst, ar, ma
}

func (c *cssProblem) residuals(cst float64, ar, ma []float64) ([]float64, float64) {
	e := make([]float64, len(c.w))
	var sse float64
	for t := c.p; t < len(c.w); t++ {
		v := c.w[t] - cst
		for i, phi := range ar {
			v -= phi * c.w[t-1-i]
		}
		for i, theta := range ma {
			if j := t - 1 - i; j >= 0 {
				v -= theta * e[j]
			}
		}
		e[t] = v
		sse += v * v
	}
	return e, sse
}

func (c *cssProblem) nEff() int { return len(c.w) - c.p }

// objective is the concentrated log-likelihood kernel 0.5*log(sigma^2),
// which keeps the gradient scale independent of the data's units.
func (c *cssProblem) objective(x []float64) float64 {
	cst, ar, ma := c.unpack(x)
	_, sse := c.residuals(cst, ar, ma)
	return 0.5 * math.Log(sse/float64(c.nEff())+c.eps)
}

// pacfToCoef converts partial autocorrelations tanh(u) into polynomial
// coefficients by the Durbin-Levinson recursion.
func pacfToCoef(u []float64) []float64 {
	k := len(u)
	coef := make([]float64, k)
	tmp := make([]float64, k)
	for i := range k {
		r := math.Tanh(u[i])
		for j := range i {
			tmp[j] = coef[j] - r*coef[i-1-j]
		}
		copy(coef[:i], tmp[:i])
		coef[i] = r
	}
	return coef
}

func fitLevel(levels [][]float64, order Order, intercept bool, maxIter int) (*ARIMA, error) {
	w := levels[order.D]
	nParams := order.P + order.Q
	if intercept {
		nParams++
	}
	if len(w)-order.P <= nParams {
		return nil, eris.Wrapf(ErrInsufficientData, "order %s: %d differenced values", order, len(w))
	}

	var mean, sq float64
	for _, v := range w {
		mean += v
		sq += v * v
	}
	mean /= float64(len(w))
	sq /= float64(len(w))

	prob := &cssProblem{
		w:         w,
		p:         order.P,
		q:         order.Q,
		intercept: intercept,
		cScale:    math.Max(math.Sqrt(sq), 1),
		eps:       1e-10 * math.Max(sq, 1),
	}

	x := make([]float64, nParams)
	if intercept {
		x[0] = mean / prob.cScale
	}

	if order.P+order.Q > 0 {
		res, err := optimize.Minimize(optimize.Problem{
			Func: prob.objective,
			Grad: func(grad, at []float64) {
				fd.Gradient(grad, prob.objective, at, &fd.Settings{Formula: fd.Central})
			},
		}, x, &optimize.Settings{
			MajorIterations:   maxIter,
			GradientThreshold: 1e-6,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-9,
				Relative:   1e-9,
				Iterations: 3,
			},
		}, &optimize.BFGS{})
		if res == nil {
			return nil, eris.Wrapf(ErrModelFit, "order %s: optimizer returned no result", order)
		}
		if res.Status == optimize.IterationLimit {
			return nil, eris.Wrapf(ErrModelFit, "order %s: no convergence in %d iterations", order, maxIter)
		}
		if err != nil {
			return nil, eris.Wrapf(ErrModelFit, "order %s: %v", order, err)
		}
		if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
			return nil, eris.Wrapf(ErrModelFit, "order %s: non-finite objective", order)
		}
		x = res.X
	}

	cst, ar, ma := prob.unpack(x)
	resid, sse := prob.residuals(cst, ar, ma)
	n := float64(prob.nEff())
	sigma2 := sse/n + prob.eps
	loglik := -0.5 * n * (math.Log(2*math.Pi*sigma2) + 1)
	k := float64(nParams + 1)

	return &ARIMA{
		Order:     order,
		Intercept: intercept,
		Const:     cst,
		AR:        ar,
		MA:        ma,
		Sigma2:    sigma2,
		AIC:       -2*loglik + 2*k,
		levels:    levels,
		resid:     resid,
	}, nil
}
