package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ledger is a validated, date-ordered, read-only sequence of events.
// Ties on date keep insertion order.
type Ledger struct {
	createdAt time.Time
	version   string
	events    []TransactionEvent
}

// NewLedger validates events, normalizes their dates to UTC days and sorts them.
// The input slice is not modified.
func NewLedger(events []TransactionEvent) (*Ledger, error) {
	sorted := make([]TransactionEvent, len(events))
	for i, e := range events {
		if err := validateEvent(i+1, e); err != nil {
			return nil, err
		}
		e.Date = Day(e.Date)
		e.Symbol = strings.ToUpper(strings.TrimSpace(e.Symbol))
		sorted[i] = e
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	return &Ledger{
		createdAt: time.Now(),
		version:   uuid.New().String(),
		events:    sorted,
	}, nil
}

func validateEvent(row int, e TransactionEvent) error {
	if e.Date.IsZero() {
		return &LedgerValidationError{Row: row, Field: "date", Reason: "date is required"}
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return &LedgerValidationError{Row: row, Field: "amount", Value: fmt.Sprint(e.Amount), Reason: "amount must be finite"}
	}
	if !e.Action.ChangesQuantity() {
		return nil
	}
	if strings.TrimSpace(e.Symbol) == "" {
		return &LedgerValidationError{Row: row, Field: "symbol", Reason: "symbol is required for " + string(e.Action)}
	}
	if e.Quantity == nil {
		return &LedgerValidationError{Row: row, Field: "quantity", Reason: "quantity is required for " + string(e.Action)}
	}
	if *e.Quantity <= 0 || math.IsInf(*e.Quantity, 0) || math.IsNaN(*e.Quantity) {
		return &LedgerValidationError{Row: row, Field: "quantity", Value: formatFloat(*e.Quantity), Reason: "quantity must be positive"}
	}
	if e.Price == nil {
		return &LedgerValidationError{Row: row, Field: "price", Reason: "price is required for " + string(e.Action)}
	}
	if *e.Price < 0 || math.IsInf(*e.Price, 0) || math.IsNaN(*e.Price) {
		return &LedgerValidationError{Row: row, Field: "price", Value: formatFloat(*e.Price), Reason: "price must be non-negative"}
	}
	return nil
}

// Version identifies this ledger instance. A replaced ledger gets a new version.
func (l *Ledger) Version() string {
	return l.version
}

// CreatedAt is when the ledger was built.
func (l *Ledger) CreatedAt() time.Time {
	return l.createdAt
}

// Len returns the number of events.
func (l *Ledger) Len() int {
	return len(l.events)
}

// Empty reports whether the ledger has no events.
func (l *Ledger) Empty() bool {
	return len(l.events) == 0
}

// Events returns a copy of all events in ledger order.
func (l *Ledger) Events() []TransactionEvent {
	out := make([]TransactionEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Between returns the events dated within [start, end], inclusive.
func (l *Ledger) Between(start, end time.Time) []TransactionEvent {
	start, end = Day(start), Day(end)
	var out []TransactionEvent
	for _, e := range l.events {
		if e.Date.Before(start) {
			continue
		}
		if e.Date.After(end) {
			break
		}
		out = append(out, e)
	}
	return out
}

// DatesBetween returns the distinct event dates within [start, end], ascending.
func (l *Ledger) DatesBetween(start, end time.Time) []time.Time {
	var dates []time.Time
	for _, e := range l.Between(start, end) {
		if n := len(dates); n > 0 && dates[n-1].Equal(e.Date) {
			continue
		}
		dates = append(dates, e.Date)
	}
	return dates
}

// Symbols returns every distinct non-empty symbol, ascending.
func (l *Ledger) Symbols() []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, e := range l.events {
		if e.Symbol == "" || seen[e.Symbol] {
			continue
		}
		seen[e.Symbol] = true
		symbols = append(symbols, e.Symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// MinDate returns the earliest event date, or the zero time for an empty ledger.
func (l *Ledger) MinDate() time.Time {
	if len(l.events) == 0 {
		return time.Time{}
	}
	return l.events[0].Date
}

// MaxDate returns the latest event date, or the zero time for an empty ledger.
func (l *Ledger) MaxDate() time.Time {
	if len(l.events) == 0 {
		return time.Time{}
	}
	return l.events[len(l.events)-1].Date
}

// NearestTransactionPrice returns the trade price of symbol closest to date.
// The latest trade on or before date wins; otherwise the earliest trade after it.
func (l *Ledger) NearestTransactionPrice(symbol string, date time.Time) (float64, bool) {
	date = Day(date)
	var (
		before, after       float64
		hasBefore, hasAfter bool
	)
	for _, e := range l.events {
		if e.Symbol != symbol || e.Price == nil {
			continue
		}
		if !e.Date.After(date) {
			before, hasBefore = *e.Price, true
			continue
		}
		if !hasAfter {
			after, hasAfter = *e.Price, true
		}
	}
	if hasBefore {
		return before, true
	}
	return after, hasAfter
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
