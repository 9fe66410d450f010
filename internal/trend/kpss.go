package trend

import "math"

// kpssCritical is the 5% critical value of the KPSS level-stationarity test.
const kpssCritical = 0.463

// kpssStatistic computes the KPSS statistic for level stationarity with the
// short Bartlett lag window trunc(3*sqrt(n)/13).
func kpssStatistic(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)

	e := make([]float64, n)
	var partial, eta, s2 float64
	for i, v := range x {
		e[i] = v - mean
		partial += e[i]
		eta += partial * partial
		s2 += e[i] * e[i]
	}
	eta /= float64(n) * float64(n)
	s2 /= float64(n)

	lags := int(math.Trunc(3 * math.Sqrt(float64(n)) / 13))
	for l := 1; l <= lags; l++ {
		w := 1 - float64(l)/float64(lags+1)
		var cov float64
		for t := l; t < n; t++ {
			cov += e[t] * e[t-l]
		}
		s2 += 2 * w * cov / float64(n)
	}
	if s2 <= 0 {
		return 0
	}
	return eta / s2
}

// chooseD picks the differencing order: difference while KPSS rejects
// stationarity, up to maxD, keeping at least two observations.
func chooseD(x []float64, maxD int) int {
	d := 0
	cur := x
	for d < maxD && len(cur)-1 >= 2 {
		if isConstant(cur) || kpssStatistic(cur) <= kpssCritical {
			break
		}
		cur = diff(cur)
		d++
	}
	return d
}

func diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

func isConstant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
