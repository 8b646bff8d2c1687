package analytics

import (
	"time"

	"github.com/aristath/folio/internal/domain"
)

const (
	// DefaultMovingAverageWindow is the overlay window used by Summarize.
	DefaultMovingAverageWindow = 20

	// DefaultSortinoTarget is the annual return below which Summarize counts
	// a period as downside.
	DefaultSortinoTarget = 0.0
)

// Report collects every statistic for one valuation series.
type Report struct {
	Start          time.Time            `json:"start"`
	End            time.Time            `json:"end"`
	Granularity    domain.Granularity   `json:"granularity"`
	Points         int                  `json:"points"`
	DegradedPoints int                  `json:"degraded_points"`
	StartValue     float64              `json:"start_value"`
	EndValue       float64              `json:"end_value"`
	TotalReturn    float64              `json:"total_return"`
	CAGR           float64              `json:"cagr"`
	Volatility     VolatilityResult     `json:"volatility"`
	Drawdown       DrawdownResult       `json:"drawdown"`
	Sharpe         RatioResult          `json:"sharpe"`
	Sortino        RatioResult          `json:"sortino"`
	Risk           RiskResult           `json:"risk"`
	Benchmark      string               `json:"benchmark,omitempty"`
	Regression     *RegressionResult    `json:"regression,omitempty"`
	Concentration  ConcentrationResult  `json:"concentration"`
	Attribution    []AttributionResult  `json:"attribution"`
	MovingAverages []MovingAveragePoint `json:"moving_averages"`
}

// Summarize computes the full report. benchmark may be nil.
func Summarize(series domain.Series, benchmark *domain.Series, riskFreeRate float64) Report {
	report := Report{
		Start:       series.Start,
		End:         series.End,
		Granularity: series.Granularity,
		Points:      len(series.Points),
	}

	for _, p := range series.Points {
		if p.IsDegraded() {
			report.DegradedPoints++
		}
	}

	if active := activePoints(series); len(active) > 0 {
		first, last := active[0], active[len(active)-1]
		report.StartValue = first.TotalValue
		report.EndValue = last.TotalValue
		report.TotalReturn = TotalReturn(first.TotalValue, last.TotalValue)
		report.CAGR = CAGR(first.TotalValue, last.TotalValue, spanDays(first.Date, last.Date))
		report.Concentration = Concentration(last)
	} else {
		report.Concentration = Concentration(domain.ValuationPoint{})
	}

	report.Volatility = Volatility(series)
	report.Drawdown = Drawdown(series)
	report.Sharpe = Sharpe(series, riskFreeRate)
	report.Sortino = Sortino(series, riskFreeRate, DefaultSortinoTarget)
	report.Risk = ValueAtRisk(series)
	report.Attribution = PeriodAttribution(series, Quarterly)
	report.MovingAverages = MovingAverages(series, DefaultMovingAverageWindow)

	if benchmark != nil && !benchmark.Empty() {
		if symbols := benchmark.Points[0].Holdings.Symbols(); len(symbols) > 0 {
			report.Benchmark = symbols[0]
		}
		reg := Regression(series, *benchmark)
		report.Regression = &reg
	}

	return report
}
