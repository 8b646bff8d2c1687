package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnnualizedVolatility_UsesPeriodsPerYear(t *testing.T) {
	returns := []float64{0.01, -0.01}

	daily := AnnualizedVolatility(returns, 252)
	weekly := AnnualizedVolatility(returns, 52)

	assert.InDelta(t, math.Sqrt(0.0002)*math.Sqrt(252), daily, 1e-12)
	assert.InDelta(t, math.Sqrt(252.0/52.0), daily/weekly, 1e-12)
}

func TestAnnualizedVolatility_Insufficient(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility(nil, 252))
	assert.Equal(t, 0.0, AnnualizedVolatility([]float64{0.01}, 252))
	assert.Equal(t, 0.0, AnnualizedVolatility([]float64{0.01, 0.02}, 0))
}

func TestMeanAndStdDev(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(data), 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), StdDev(data), 1e-12)
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev([]float64{1}))
}

func TestCovarianceAndCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}

	assert.InDelta(t, 1.0, Correlation(x, y), 1e-12)
	assert.InDelta(t, 2*Variance(x), Covariance(x, y), 1e-12)
	assert.Equal(t, 0.0, Covariance(x, y[:3]))
}
