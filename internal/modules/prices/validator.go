package prices

import (
	"math"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

const (
	maxPriceChangePercent = 1000.0 // > 1000% day-over-day is treated as a bad tick
	minPriceChangePercent = -90.0  // < -90% day-over-day is treated as a bad tick
)

// PriceValidator cleans bars returned by external sources before they are stored.
type PriceValidator struct {
	log zerolog.Logger
}

// NewPriceValidator creates a new price validator
func NewPriceValidator(log zerolog.Logger) *PriceValidator {
	return &PriceValidator{
		log: log.With().Str("component", "price_validator").Logger(),
	}
}

// ValidateBars returns the usable bars in input order. Bars are expected in
// ascending date order. Rejected: non-finite or non-positive closes, and closes
// that move beyond the spike thresholds relative to the previous accepted bar.
// Accepted bars have their OHLC fields made mutually consistent.
func (v *PriceValidator) ValidateBars(symbol string, bars []domain.PriceRecord) []domain.PriceRecord {
	out := make([]domain.PriceRecord, 0, len(bars))
	var prev *domain.PriceRecord
	rejected := 0

	for _, bar := range bars {
		if !isFinite(bar.Close) || bar.Close <= 0 {
			rejected++
			continue
		}

		if prev != nil {
			change := ((bar.Close - prev.Close) / prev.Close) * 100
			if change > maxPriceChangePercent || change < minPriceChangePercent {
				v.log.Debug().
					Str("symbol", symbol).
					Str("date", bar.Date.Format(domain.DateLayout)).
					Float64("change_pct", change).
					Msg("Rejected price spike")
				rejected++
				continue
			}
		}

		fixed := ensureOHLCConsistency(bar)
		out = append(out, fixed)
		prev = &out[len(out)-1]
	}

	if rejected > 0 {
		v.log.Warn().
			Str("symbol", symbol).
			Int("rejected", rejected).
			Int("accepted", len(out)).
			Msg("Dropped invalid bars from fetched history")
	}

	return out
}

// ensureOHLCConsistency fills missing OHLC fields from the close and
// widens high/low so that low <= open, close <= high.
func ensureOHLCConsistency(bar domain.PriceRecord) domain.PriceRecord {
	if !isFinite(bar.Open) || bar.Open <= 0 {
		bar.Open = bar.Close
	}
	if !isFinite(bar.High) || bar.High <= 0 {
		bar.High = bar.Close
	}
	if !isFinite(bar.Low) || bar.Low <= 0 {
		bar.Low = bar.Close
	}

	bar.High = math.Max(bar.High, math.Max(bar.Open, bar.Close))
	bar.Low = math.Min(bar.Low, math.Min(bar.Open, bar.Close))
	if bar.Volume < 0 {
		bar.Volume = 0
	}
	return bar
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
