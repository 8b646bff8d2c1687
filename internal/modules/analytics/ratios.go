package analytics

import (
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/pkg/formulas"
)

// RatioResult is a risk-adjusted return ratio. Value is 0 whenever Valid is false.
type RatioResult struct {
	Value            float64 `json:"value"`
	Observations     int     `json:"observations"`
	Valid            bool    `json:"valid"`
	InsufficientData bool    `json:"insufficient_data"`
}

// Sharpe is (mean excess return / stdev) × sqrt(periods per year).
// riskFreeRate is annual, as a decimal.
func Sharpe(series domain.Series, riskFreeRate float64) RatioResult {
	returns := periodReturns(series)
	result := RatioResult{Observations: len(returns)}
	if len(returns) < MinObservations {
		result.InsufficientData = true
		return result
	}

	if v := formulas.CalculateSharpeRatio(returns, riskFreeRate, series.Granularity.PeriodsPerYear()); v != nil {
		result.Value = *v
		result.Valid = true
	}
	return result
}

// Sortino is (mean excess return / downside deviation) × sqrt(periods per year).
// riskFreeRate and target are annual, as decimals.
func Sortino(series domain.Series, riskFreeRate, target float64) RatioResult {
	returns := periodReturns(series)
	result := RatioResult{Observations: len(returns)}
	if len(returns) < MinObservations {
		result.InsufficientData = true
		return result
	}

	if v := formulas.CalculateSortinoRatio(returns, riskFreeRate, target, series.Granularity.PeriodsPerYear()); v != nil {
		result.Value = *v
		result.Valid = true
	}
	return result
}
