package formulas

import "math"

// DaysPerYear is the calendar-day year length used to annualize growth.
const DaysPerYear = 365.25

// TotalReturn returns end/start - 1, or 0 when start is not positive.
func TotalReturn(startValue, endValue float64) float64 {
	if startValue <= 0 {
		return 0
	}
	return endValue/startValue - 1
}

// CalculateCAGR calculates Compound Annual Growth Rate over a span of calendar days.
//
// Formula: CAGR = (End / Start)^(365.25/days) - 1
//
// Returns 0 when startValue <= 0 or days <= 0. A non-positive end value is a total loss (-1).
func CalculateCAGR(startValue, endValue, days float64) float64 {
	if startValue <= 0 || days <= 0 {
		return 0
	}
	if endValue <= 0 {
		return -1
	}
	return math.Pow(endValue/startValue, DaysPerYear/days) - 1
}
