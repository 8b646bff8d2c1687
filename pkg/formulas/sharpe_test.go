package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSharpeRatio(t *testing.T) {
	sharpe := CalculateSharpeRatio([]float64{0.01, 0.02, 0.03}, 0, 252)
	require.NotNil(t, sharpe)
	assert.InDelta(t, 2*math.Sqrt(252), *sharpe, 1e-9)
}

func TestCalculateSharpeRatio_RiskFreeReducesRatio(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.03}
	withRF := CalculateSharpeRatio(returns, 0.05, 252)
	withoutRF := CalculateSharpeRatio(returns, 0, 252)
	require.NotNil(t, withRF)
	require.NotNil(t, withoutRF)
	assert.Less(t, *withRF, *withoutRF)
}

func TestCalculateSharpeRatio_Degenerate(t *testing.T) {
	assert.Nil(t, CalculateSharpeRatio([]float64{0.01}, 0, 252))
	assert.Nil(t, CalculateSharpeRatio([]float64{0.01, 0.01, 0.01}, 0, 252))
}

func TestCalculateSortinoRatio(t *testing.T) {
	sortino := CalculateSortinoRatio([]float64{0.02, -0.01, 0.03, -0.02}, 0, 0, 12)
	require.NotNil(t, sortino)
	expected := (0.005 / math.Sqrt(0.00025)) * math.Sqrt(12)
	assert.InDelta(t, expected, *sortino, 1e-9)
}

func TestCalculateSortinoRatio_NoDownside(t *testing.T) {
	assert.Nil(t, CalculateSortinoRatio([]float64{0.01, 0.02, 0.03}, 0, 0, 252))
}

func TestDownsideDeviation(t *testing.T) {
	assert.InDelta(t, math.Sqrt(0.00025), DownsideDeviation([]float64{0.02, -0.01, 0.03, -0.02}, 0), 1e-12)
	assert.Equal(t, 0.0, DownsideDeviation([]float64{0.01}, 0))
}
