package holdings

import (
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

type costState struct {
	quantity  decimal.Decimal
	cost      decimal.Decimal
	realized  decimal.Decimal
	dividends decimal.Decimal
}

// CostBasis computes average-cost basis per symbol from events dated on or before date.
// Sells realize (price - average cost) × quantity against the long position.
// Symbols that were closed out still report their realized gain and dividends.
func CostBasis(ledger *domain.Ledger, date time.Time) map[string]domain.PositionCost {
	out := make(map[string]domain.PositionCost)
	if ledger == nil {
		return out
	}

	date = domain.Day(date)
	states := make(map[string]*costState)
	for _, e := range ledger.Events() {
		if e.Date.After(date) {
			break
		}
		if e.Symbol == "" {
			continue
		}
		s, ok := states[e.Symbol]
		if !ok {
			s = &costState{}
			states[e.Symbol] = s
		}
		applyCost(s, e)
	}

	for symbol, s := range states {
		pc := domain.PositionCost{
			Symbol:       symbol,
			RealizedGain: s.realized.InexactFloat64(),
			Dividends:    s.dividends.InexactFloat64(),
		}
		if s.quantity.Abs().GreaterThanOrEqual(epsilon) {
			pc.Quantity = s.quantity.InexactFloat64()
			pc.CostBasis = s.cost.InexactFloat64()
			if s.quantity.IsPositive() {
				pc.AverageCost = s.cost.Div(s.quantity).InexactFloat64()
			}
		}
		out[symbol] = pc
	}
	return out
}

func applyCost(s *costState, e domain.TransactionEvent) {
	switch e.Action {
	case domain.ActionBuy:
		qty := decimal.NewFromFloat(*e.Quantity)
		s.quantity = s.quantity.Add(qty)
		s.cost = s.cost.Add(qty.Mul(decimal.NewFromFloat(*e.Price)))
	case domain.ActionSell:
		qty := decimal.NewFromFloat(*e.Quantity)
		price := decimal.NewFromFloat(*e.Price)
		if s.quantity.IsPositive() {
			closed := decimal.Min(qty, s.quantity)
			avg := s.cost.Div(s.quantity)
			s.realized = s.realized.Add(closed.Mul(price.Sub(avg)))
			s.cost = s.cost.Sub(closed.Mul(avg))
		}
		s.quantity = s.quantity.Sub(qty)
		if s.quantity.Abs().LessThan(epsilon) || s.quantity.IsNegative() {
			s.cost = decimal.Zero
		}
	case domain.ActionDividend:
		s.dividends = s.dividends.Add(decimal.NewFromFloat(e.Amount))
	}
}
