// Package analytics computes performance and risk statistics from valuation series.
//
// Functions never fail. When inputs are too short or degenerate they return
// neutral values together with a validity or confidence flag.
package analytics

import (
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/pkg/formulas"
)

// MinObservations is the number of period returns below which ratio and tail
// statistics are reported as insufficient.
const MinObservations = 30

// TotalReturn is end/start - 1, or 0 when start is not positive.
func TotalReturn(start, end float64) float64 {
	return formulas.TotalReturn(start, end)
}

// CAGR annualizes growth over a span of calendar days. 0 when start or days is not positive.
func CAGR(start, end, days float64) float64 {
	return formulas.CalculateCAGR(start, end, days)
}

// VolatilityResult is the annualized standard deviation of period returns.
type VolatilityResult struct {
	Annualized     float64 `json:"annualized"`
	PeriodsPerYear int     `json:"periods_per_year"`
	Observations   int     `json:"observations"`
	Valid          bool    `json:"valid"`
}

// Volatility annualizes with the factor matching the series granularity.
func Volatility(series domain.Series) VolatilityResult {
	returns := periodReturns(series)
	ppy := series.Granularity.PeriodsPerYear()
	result := VolatilityResult{PeriodsPerYear: ppy, Observations: len(returns)}
	if len(returns) < 2 {
		return result
	}
	result.Annualized = formulas.AnnualizedVolatility(returns, ppy)
	result.Valid = true
	return result
}

// activePoints drops the leading points with no value, before the first position was priced.
func activePoints(series domain.Series) []domain.ValuationPoint {
	for i, p := range series.Points {
		if p.TotalValue > 0 {
			return series.Points[i:]
		}
	}
	return nil
}

// periodReturns are the returns between consecutive active points.
// A step from a non-positive value contributes no return.
func periodReturns(series domain.Series) []float64 {
	points := activePoints(series)
	if len(points) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].TotalValue
		if prev <= 0 {
			continue
		}
		returns = append(returns, points[i].TotalValue/prev-1)
	}
	return returns
}

// spanDays is the calendar-day distance between two dates.
func spanDays(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}
