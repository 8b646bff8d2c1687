package analytics

import (
	"github.com/aristath/folio/internal/domain"
)

// ConcentrationResult describes how a portfolio's value is spread across positions.
type ConcentrationResult struct {
	Weights              map[string]float64 `json:"weights"`
	Herfindahl           float64            `json:"herfindahl"`
	EffectiveBets        float64            `json:"effective_bets"`
	DiversificationScore float64            `json:"diversification_score"` // 0 (one position) to 100 (equal weights)
	Positions            int                `json:"positions"`
}

// Concentration weights positions by value. Positions with non-positive value are ignored.
func Concentration(point domain.ValuationPoint) ConcentrationResult {
	result := ConcentrationResult{Weights: make(map[string]float64)}

	total := 0.0
	symbols := point.Holdings.Symbols()
	for _, symbol := range symbols {
		if v := point.Values[symbol]; v > 0 {
			total += v
		}
	}
	if total <= 0 {
		return result
	}

	for _, symbol := range symbols {
		v := point.Values[symbol]
		if v <= 0 {
			continue
		}
		w := v / total
		result.Weights[symbol] = w
		result.Herfindahl += w * w
	}
	result.Positions = len(result.Weights)
	result.EffectiveBets = 1 / result.Herfindahl

	n := float64(result.Positions)
	if result.Positions > 1 {
		score := 100 * (1 - (result.Herfindahl-1/n)/(1-1/n))
		result.DiversificationScore = clamp(score, 0, 100)
	}

	return result
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
