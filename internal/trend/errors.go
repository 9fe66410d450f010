// Package trend fits the two models used to extrapolate county indicators:
// a closed-form linear trend and an automatically selected ARIMA model.
package trend

import "github.com/rotisserie/eris"

var (
	// ErrInsufficientData is returned when a series is too short for the
	// requested model. Callers skip the entity or apply a fallback.
	ErrInsufficientData = eris.New("trend: insufficient data")

	// ErrModelFit is returned when an iterative fit fails to converge within
	// its iteration budget or produces a non-finite objective.
	ErrModelFit = eris.New("trend: model fit failed")
)
