package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// SMASeries returns the simple moving average for every point of closes.
// Points before the window fills are NaN.
func SMASeries(closes []float64, length int) []float64 {
	if length <= 0 || len(closes) < length {
		return nanSeries(len(closes))
	}
	return maskLookback(talib.Sma(closes, length), length)
}

// EMASeries returns the exponential moving average for every point of closes.
// Points before the window fills are NaN.
func EMASeries(closes []float64, length int) []float64 {
	if length <= 0 || len(closes) < length {
		return nanSeries(len(closes))
	}
	return maskLookback(talib.Ema(closes, length), length)
}

// maskLookback marks the warm-up points talib leaves zeroed as NaN.
func maskLookback(series []float64, length int) []float64 {
	for i := 0; i < length-1 && i < len(series); i++ {
		series[i] = math.NaN()
	}
	return series
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
