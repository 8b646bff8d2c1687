package formulas

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CalculateVaR returns the empirical (1-confidence) quantile of the returns,
// e.g. the 5th percentile for confidence 0.95. Losses are negative.
func CalculateVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	return stat.Quantile(1-confidence, stat.Empirical, sorted, nil)
}

// CalculateExpectedShortfall is the mean of all returns at or below threshold.
func CalculateExpectedShortfall(returns []float64, threshold float64) float64 {
	sum := 0.0
	count := 0
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		return threshold
	}
	return sum / float64(count)
}
