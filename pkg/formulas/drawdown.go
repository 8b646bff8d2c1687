package formulas

// DrawdownSeries computes the running peak and the per-point drawdown
// (value - peak) / peak for a value series. Drawdowns are <= 0.
func DrawdownSeries(values []float64) (peaks []float64, drawdowns []float64) {
	peaks = make([]float64, len(values))
	drawdowns = make([]float64, len(values))
	if len(values) == 0 {
		return peaks, drawdowns
	}

	peak := values[0]
	for i, v := range values {
		if v > peak {
			peak = v
		}
		peaks[i] = peak
		if peak > 0 {
			drawdowns[i] = (v - peak) / peak
		}
	}

	return peaks, drawdowns
}

// CalculateMaxDrawdown returns the most negative drawdown and its index.
// The index is -1 for an empty series.
func CalculateMaxDrawdown(values []float64) (float64, int) {
	if len(values) == 0 {
		return 0, -1
	}

	_, drawdowns := DrawdownSeries(values)
	maxDrawdown := 0.0
	index := 0
	for i, dd := range drawdowns {
		if dd < maxDrawdown {
			maxDrawdown = dd
			index = i
		}
	}

	return maxDrawdown, index
}

// RecoveryIndex returns the first index after trough whose value is at least
// threshold × peakValue, or -1 when the series never gets there.
func RecoveryIndex(values []float64, trough int, peakValue, threshold float64) int {
	if trough < 0 || trough >= len(values) {
		return -1
	}
	target := peakValue * threshold
	for i := trough + 1; i < len(values); i++ {
		if values[i] >= target {
			return i
		}
	}
	return -1
}

// CalculateUlcerIndex measures depth and duration of drawdowns over a series.
func CalculateUlcerIndex(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	_, drawdowns := DrawdownSeries(values)
	sum := 0.0
	for _, dd := range drawdowns {
		sum += dd * dd
	}

	return sqrt(sum / float64(len(values)))
}
