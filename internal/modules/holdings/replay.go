// Package holdings derives point-in-time positions by replaying a ledger.
// Replays are deterministic: no wall clock and no external state.
package holdings

import (
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// Epsilon is the absolute quantity below which a position counts as closed.
const Epsilon = 1e-6

var epsilon = decimal.NewFromFloat(Epsilon)

// HoldingsAt applies every event dated on or before date, in ledger order.
// BUY adds quantity, SELL subtracts it, every other action leaves positions alone.
func HoldingsAt(ledger *domain.Ledger, date time.Time) domain.HoldingsSnapshot {
	if ledger == nil {
		return domain.HoldingsSnapshot{}
	}
	return NewReplayer(ledger).AdvanceTo(date)
}

// CurrentHoldings is HoldingsAt the ledger's latest event date.
func CurrentHoldings(ledger *domain.Ledger) domain.HoldingsSnapshot {
	if ledger == nil {
		return domain.HoldingsSnapshot{}
	}
	return HoldingsAt(ledger, ledger.MaxDate())
}

// Replayer walks a ledger forward, applying each event exactly once.
// Not safe for concurrent use.
type Replayer struct {
	positions map[string]decimal.Decimal
	events    []domain.TransactionEvent
	next      int
}

// NewReplayer starts a replay before the first event.
func NewReplayer(ledger *domain.Ledger) *Replayer {
	return &Replayer{
		positions: make(map[string]decimal.Decimal),
		events:    ledger.Events(),
	}
}

// AdvanceTo applies all not yet applied events dated on or before date and
// returns the resulting snapshot. Asking for an earlier date than a previous
// call does not rewind.
func (r *Replayer) AdvanceTo(date time.Time) domain.HoldingsSnapshot {
	date = domain.Day(date)
	for r.next < len(r.events) && !r.events[r.next].Date.After(date) {
		r.apply(r.events[r.next])
		r.next++
	}
	return r.Snapshot()
}

// Applied returns how many events have been applied so far.
func (r *Replayer) Applied() int {
	return r.next
}

func (r *Replayer) apply(e domain.TransactionEvent) {
	if e.Quantity == nil || e.Symbol == "" {
		return
	}
	qty := decimal.NewFromFloat(*e.Quantity)
	switch e.Action {
	case domain.ActionBuy:
		r.positions[e.Symbol] = r.positions[e.Symbol].Add(qty)
	case domain.ActionSell:
		r.positions[e.Symbol] = r.positions[e.Symbol].Sub(qty)
	}
}

// Snapshot returns the current open positions.
func (r *Replayer) Snapshot() domain.HoldingsSnapshot {
	out := make(domain.HoldingsSnapshot, len(r.positions))
	for symbol, qty := range r.positions {
		if qty.Abs().LessThan(epsilon) {
			continue
		}
		out[symbol] = qty.InexactFloat64()
	}
	return out
}
