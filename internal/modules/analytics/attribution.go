package analytics

import (
	"sort"
	"time"

	"github.com/aristath/folio/internal/domain"
)

// Period is the length of an attribution window.
type Period string

const (
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
	Yearly    Period = "yearly"
)

// Contribution is one symbol's share of a period return.
type Contribution struct {
	Symbol       string  `json:"symbol"`
	Weight       float64 `json:"weight"` // opening weight
	Return       float64 `json:"return"`
	Contribution float64 `json:"contribution"`
}

// AttributionResult splits the return of the opening portfolio into per-symbol contributions.
// PortfolioReturn is the sum of the contributions. Unpriced lists opening
// symbols without a closing price; they contribute 0.
type AttributionResult struct {
	Start           time.Time      `json:"start"`
	End             time.Time      `json:"end"`
	Label           string         `json:"label,omitempty"`
	Contributions   []Contribution `json:"contributions"`
	PortfolioReturn float64        `json:"portfolio_return"`
	TopContributor  string         `json:"top_contributor,omitempty"`
	Unpriced        []string       `json:"unpriced,omitempty"`
}

// Attribution computes contribution = opening weight × symbol price return
// between two points. Contributions are ordered by symbol.
func Attribution(from, to domain.ValuationPoint) AttributionResult {
	result := AttributionResult{Start: from.Date, End: to.Date}
	if from.TotalValue <= 0 {
		return result
	}

	for _, symbol := range from.Holdings.Symbols() {
		openValue, ok := from.Values[symbol]
		if !ok {
			continue
		}
		c := Contribution{Symbol: symbol, Weight: openValue / from.TotalValue}

		openPrice := from.Prices[symbol]
		closePrice, priced := to.Prices[symbol]
		if !priced {
			result.Unpriced = append(result.Unpriced, symbol)
		} else if openPrice > 0 {
			c.Return = closePrice/openPrice - 1
		}
		c.Contribution = c.Weight * c.Return

		result.Contributions = append(result.Contributions, c)
		result.PortfolioReturn += c.Contribution
	}

	result.TopContributor = topContributor(result.Contributions)
	return result
}

// topContributor is the symbol with the largest contribution, the first symbol on ties.
func topContributor(contributions []Contribution) string {
	top := ""
	best := 0.0
	for _, c := range contributions {
		if top == "" || c.Contribution > best {
			top, best = c.Symbol, c.Contribution
		}
	}
	return top
}

// PeriodAttribution runs Attribution over consecutive calendar periods. Each
// period opens at the last point of the previous period, the first at the
// first point of the series.
func PeriodAttribution(series domain.Series, period Period) []AttributionResult {
	points := activePoints(series)
	if len(points) < 2 {
		return nil
	}

	type bucket struct {
		label string
		last  int
	}
	var buckets []bucket
	for i, p := range points {
		label := periodLabel(p.Date, period)
		if n := len(buckets); n > 0 && buckets[n-1].label == label {
			buckets[n-1].last = i
			continue
		}
		buckets = append(buckets, bucket{label: label, last: i})
	}

	results := make([]AttributionResult, 0, len(buckets))
	open := 0
	for _, b := range buckets {
		if b.last == open {
			continue
		}
		r := Attribution(points[open], points[b.last])
		r.Label = b.label
		results = append(results, r)
		open = b.last
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Start.Before(results[j].Start) })
	return results
}

func periodLabel(t time.Time, period Period) string {
	switch period {
	case Monthly:
		return t.Format("2006-01")
	case Yearly:
		return t.Format("2006")
	default:
		q := (int(t.Month())-1)/3 + 1
		return t.Format("2006") + "-Q" + string(rune('0'+q))
	}
}
