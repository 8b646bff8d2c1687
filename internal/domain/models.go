// Package domain provides core domain models and types.
package domain

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used on every external surface.
const DateLayout = "2006-01-02"

// Action is the kind of a ledger event
type Action string

const (
	ActionBuy      Action = "BUY"
	ActionSell     Action = "SELL"
	ActionDividend Action = "DIVIDEND"
	ActionTransfer Action = "TRANSFER"
	ActionSplit    Action = "SPLIT"
	ActionUnknown  Action = "UNKNOWN"
)

// ParseAction maps free-form broker wording onto an Action.
// Anything unrecognised becomes ActionUnknown.
func ParseAction(s string) Action {
	switch normalizeToken(s) {
	case "BUY", "B", "PURCHASE", "BOUGHT":
		return ActionBuy
	case "SELL", "S", "SALE", "SOLD":
		return ActionSell
	case "DIVIDEND", "DIV", "DIVIDENDS":
		return ActionDividend
	case "TRANSFER", "DEPOSIT", "WITHDRAWAL", "CASH":
		return ActionTransfer
	case "SPLIT", "STOCKSPLIT":
		return ActionSplit
	default:
		return ActionUnknown
	}
}

func normalizeToken(s string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToUpper(strings.TrimSpace(s)))
}

// ChangesQuantity reports whether the action moves a position.
func (a Action) ChangesQuantity() bool {
	return a == ActionBuy || a == ActionSell
}

// TransactionEvent is one immutable ledger row.
// Symbol is empty for cash-only events. Quantity and Price are set for BUY/SELL.
type TransactionEvent struct {
	Date     time.Time `json:"date"`
	Quantity *float64  `json:"quantity,omitempty"`
	Price    *float64  `json:"price,omitempty"`
	Symbol   string    `json:"symbol,omitempty"`
	Action   Action    `json:"action"`
	Amount   float64   `json:"amount"`
}

// HoldingsSnapshot maps symbol to signed quantity at a point in time.
type HoldingsSnapshot map[string]float64

// Symbols returns the held symbols in ascending order.
func (h HoldingsSnapshot) Symbols() []string {
	symbols := make([]string, 0, len(h))
	for symbol := range h {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Clone returns an independent copy.
func (h HoldingsSnapshot) Clone() HoldingsSnapshot {
	out := make(HoldingsSnapshot, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// PriceRecord is one daily bar from the price store.
type PriceRecord struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Granularity is the sampling frequency of a valuation series.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// PeriodsPerYear returns the annualization factor matching the granularity.
func (g Granularity) PeriodsPerYear() int {
	switch g {
	case GranularityWeekly:
		return 52
	case GranularityMonthly:
		return 12
	default:
		return 252
	}
}

// ValuationPoint is the portfolio value at one sampled date.
type ValuationPoint struct {
	Date       time.Time          `json:"date"`
	Holdings   HoldingsSnapshot   `json:"holdings"`
	Values     map[string]float64 `json:"values"`
	Prices     map[string]float64 `json:"prices"`
	Degraded   []string           `json:"degraded,omitempty"`
	Missing    []string           `json:"missing,omitempty"`
	TotalValue float64            `json:"total_value"`
}

// IsDegraded reports whether any symbol was valued from a stale or absent price.
func (p ValuationPoint) IsDegraded() bool {
	return len(p.Degraded) > 0 || len(p.Missing) > 0
}

// Series is an ordered valuation series together with its sampling granularity.
type Series struct {
	Start         time.Time        `json:"start"`
	End           time.Time        `json:"end"`
	Granularity   Granularity      `json:"granularity"`
	LedgerVersion string           `json:"ledger_version"`
	Points        []ValuationPoint `json:"points"`
}

// Empty reports whether the series holds no points.
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

// Values returns the total value of every point in order.
func (s Series) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.TotalValue
	}
	return values
}

// Dates returns the date of every point in order.
func (s Series) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// PositionCost is the average-cost basis of one symbol.
type PositionCost struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AverageCost  float64 `json:"average_cost"`
	CostBasis    float64 `json:"cost_basis"`
	RealizedGain float64 `json:"realized_gain"`
	Dividends    float64 `json:"dividends"`
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
