package analytics

import (
	"math"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/pkg/formulas"
)

// RegressionResult relates portfolio returns to benchmark returns.
type RegressionResult struct {
	Beta             float64 `json:"beta"`
	Alpha            float64 `json:"alpha"` // annualized intercept
	RSquared         float64 `json:"r_squared"`
	Correlation      float64 `json:"correlation"`
	Observations     int     `json:"observations"`
	Valid            bool    `json:"valid"`
	InsufficientData bool    `json:"insufficient_data"`
}

// Regression fits portfolio returns on benchmark returns over the periods both
// series value at the same pair of dates.
func Regression(series, benchmark domain.Series) RegressionResult {
	x, y := alignedReturns(series, benchmark)
	result := RegressionResult{Observations: len(x)}
	if len(x) < MinObservations {
		result.InsufficientData = true
		return result
	}

	fit, ok := formulas.CalculateRegression(x, y)
	if !ok {
		return result
	}

	// A flat portfolio has no variance to explain.
	correlation := formulas.Correlation(x, y)
	if formulas.Variance(y) == 0 || !finiteAll(fit.Beta, fit.Alpha, fit.RSquared, correlation) {
		return result
	}

	result.Beta = fit.Beta
	result.Alpha = fit.Alpha * float64(series.Granularity.PeriodsPerYear())
	result.RSquared = fit.RSquared
	result.Correlation = correlation
	result.Valid = true
	return result
}

func finiteAll(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// alignedReturns returns benchmark (x) and portfolio (y) returns for every
// consecutive pair of portfolio dates that the benchmark also valued.
func alignedReturns(series, benchmark domain.Series) (x, y []float64) {
	bench := make(map[time.Time]float64, len(benchmark.Points))
	for _, p := range benchmark.Points {
		if p.TotalValue > 0 {
			bench[p.Date] = p.TotalValue
		}
	}

	for i := 1; i < len(series.Points); i++ {
		prev, cur := series.Points[i-1], series.Points[i]
		if prev.TotalValue <= 0 {
			continue
		}
		bPrev, ok1 := bench[prev.Date]
		bCur, ok2 := bench[cur.Date]
		if !ok1 || !ok2 {
			continue
		}
		x = append(x, bCur/bPrev-1)
		y = append(y, cur.TotalValue/prev.TotalValue-1)
	}
	return x, y
}
