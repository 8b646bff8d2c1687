package analytics

import (
	"math"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/pkg/formulas"
)

// MovingAveragePoint is one date of a moving-average overlay. SMA and EMA are
// nil until the window has filled.
type MovingAveragePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	SMA   *float64  `json:"sma,omitempty"`
	EMA   *float64  `json:"ema,omitempty"`
}

// MovingAverages overlays simple and exponential moving averages of the series total value.
func MovingAverages(series domain.Series, window int) []MovingAveragePoint {
	values := series.Values()
	sma := formulas.SMASeries(values, window)
	ema := formulas.EMASeries(values, window)

	out := make([]MovingAveragePoint, len(values))
	for i, p := range series.Points {
		out[i] = MovingAveragePoint{
			Date:  p.Date,
			Value: values[i],
			SMA:   finite(sma[i]),
			EMA:   finite(ema[i]),
		}
	}
	return out
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
