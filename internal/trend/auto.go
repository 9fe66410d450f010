package trend

import (
	"github.com/rotisserie/eris"
)

// MinARIMAObservations is the shortest series AutoARIMA accepts.
const MinARIMAObservations = 3

// maxOrder caps p+q during the stepwise search.
const maxOrder = 5

// maxSteps bounds the number of stepwise moves.
const maxSteps = 100

// AutoConfig pins the search space of AutoARIMA. Seasonality is always off.
type AutoConfig struct {
	MaxP    int
	MaxQ    int
	MaxD    int
	MaxIter int
}

// DefaultAutoConfig returns the search bounds used by the backcast passes.
func DefaultAutoConfig() AutoConfig {
	return AutoConfig{MaxP: 3, MaxQ: 3, MaxD: 2, MaxIter: 15}
}

func (c AutoConfig) withDefaults() AutoConfig {
	def := DefaultAutoConfig()
	if c.MaxP < 0 {
		c.MaxP = 0
	}
	if c.MaxQ < 0 {
		c.MaxQ = 0
	}
	if c.MaxD < 0 {
		c.MaxD = 0
	}
	if c.MaxIter <= 0 {
		c.MaxIter = def.MaxIter
	}
	return c
}

// AutoARIMA selects and fits a non-seasonal ARIMA model. The differencing
// order comes from repeated KPSS tests; (p, q) from a stepwise search that
// starts at (0,0), (1,0), (0,1) and moves to the first neighbour that lowers
// AIC. Candidates that fail to fit are skipped. The result is deterministic
// for a given input.
func AutoARIMA(values []float64, cfg AutoConfig) (*ARIMA, error) {
	cfg = cfg.withDefaults()
	if len(values) < MinARIMAObservations {
		return nil, eris.Wrapf(ErrInsufficientData, "auto arima needs %d values, got %d", MinARIMAObservations, len(values))
	}
	if err := checkFinite(values); err != nil {
		return nil, err
	}

	d := chooseD(values, cfg.MaxD)
	levels := differenceLevels(values, d)
	intercept := d < 2

	type pq struct{ p, q int }
	fits := make(map[pq]*ARIMA)
	var lastErr error

	try := func(p, q int) *ARIMA {
		key := pq{p, q}
		if m, ok := fits[key]; ok {
			return m
		}
		m, err := fitLevel(levels, Order{P: p, D: d, Q: q}, intercept, cfg.MaxIter)
		if err != nil {
			lastErr = err
			m = nil
		}
		fits[key] = m
		return m
	}

	var best *ARIMA
	improves := func(p, q int) bool {
		if p < 0 || q < 0 || p > cfg.MaxP || q > cfg.MaxQ || p+q > maxOrder {
			return false
		}
		m := try(p, q)
		if m == nil {
			return false
		}
		if best == nil || m.AIC < best.AIC {
			best = m
			return true
		}
		return false
	}

	improves(0, 0)
	improves(1, 0)
	improves(0, 1)

	for step := 0; best != nil && step < maxSteps; step++ {
		p, q := best.Order.P, best.Order.Q
		neighbours := [][2]int{
			{p - 1, q}, {p + 1, q}, {p, q - 1}, {p, q + 1},
			{p - 1, q - 1}, {p + 1, q + 1}, {p - 1, q + 1}, {p + 1, q - 1},
		}
		moved := false
		for _, nb := range neighbours {
			if improves(nb[0], nb[1]) {
				moved = true
				break
			}
		}
		if !moved {
			break
		}
	}

	if best == nil {
		return nil, eris.Wrapf(ErrModelFit, "no candidate order could be fit (last error: %v)", lastErr)
	}

	best.ModelsEvaluated = len(fits)
	return best, nil
}
