package analytics

import (
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/pkg/formulas"
)

// RecoveryThreshold is the share of the pre-drawdown peak a series must regain to count as recovered.
const RecoveryThreshold = 0.995

// DrawdownPoint is the running peak and drawdown at one date.
type DrawdownPoint struct {
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Peak     float64   `json:"peak"`
	Drawdown float64   `json:"drawdown"`
}

// DrawdownResult describes the drawdown profile of a series. Drawdowns are <= 0.
type DrawdownResult struct {
	Points       []DrawdownPoint `json:"points"`
	MaxDrawdown  float64         `json:"max_drawdown"`
	PeakDate     *time.Time      `json:"peak_date,omitempty"`
	TroughDate   *time.Time      `json:"trough_date,omitempty"`
	RecoveryDate *time.Time      `json:"recovery_date,omitempty"`
	RecoveryDays *int            `json:"recovery_days,omitempty"`
	UlcerIndex   float64         `json:"ulcer_index"`
}

// Drawdown computes the running peak, per-point drawdown, the maximum drawdown
// and its recovery. RecoveryDate stays nil when the series never regains
// RecoveryThreshold of the peak preceding the trough.
func Drawdown(series domain.Series) DrawdownResult {
	points := activePoints(series)
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.TotalValue
	}

	peaks, drawdowns := formulas.DrawdownSeries(values)
	result := DrawdownResult{Points: make([]DrawdownPoint, len(points))}
	for i, p := range points {
		result.Points[i] = DrawdownPoint{Date: p.Date, Value: values[i], Peak: peaks[i], Drawdown: drawdowns[i]}
	}
	if len(values) == 0 {
		return result
	}

	result.UlcerIndex = formulas.CalculateUlcerIndex(values)

	maxDD, trough := formulas.CalculateMaxDrawdown(values)
	if maxDD >= 0 {
		return result
	}
	result.MaxDrawdown = maxDD

	troughDate := points[trough].Date
	result.TroughDate = &troughDate

	peakValue := peaks[trough]
	for i := trough; i >= 0; i-- {
		if values[i] == peakValue {
			peakDate := points[i].Date
			result.PeakDate = &peakDate
			break
		}
	}

	if idx := formulas.RecoveryIndex(values, trough, peakValue, RecoveryThreshold); idx >= 0 {
		recoveryDate := points[idx].Date
		days := int(spanDays(troughDate, recoveryDate))
		result.RecoveryDate = &recoveryDate
		result.RecoveryDays = &days
	}

	return result
}
