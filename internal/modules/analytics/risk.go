package analytics

import (
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/pkg/formulas"
)

// RiskResult holds historical Value at Risk and Expected Shortfall of period
// returns. Losses are negative.
type RiskResult struct {
	VaR95         float64 `json:"var_95"`
	VaR99         float64 `json:"var_99"`
	ES95          float64 `json:"es_95"`
	ES99          float64 `json:"es_99"`
	Observations  int     `json:"observations"`
	LowConfidence bool    `json:"low_confidence"`
}

// ValueAtRisk uses the empirical 5th and 1st percentiles of the period returns.
// Fewer than MinObservations returns give zeros and LowConfidence.
func ValueAtRisk(series domain.Series) RiskResult {
	returns := periodReturns(series)
	result := RiskResult{Observations: len(returns)}
	if len(returns) < MinObservations {
		result.LowConfidence = true
		return result
	}

	result.VaR95 = formulas.CalculateVaR(returns, 0.95)
	result.VaR99 = formulas.CalculateVaR(returns, 0.99)
	result.ES95 = formulas.CalculateExpectedShortfall(returns, result.VaR95)
	result.ES99 = formulas.CalculateExpectedShortfall(returns, result.VaR99)
	return result
}
