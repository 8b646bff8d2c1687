package testing

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/utils"
)

// Day parses a YYYY-MM-DD date and panics on malformed input.
func Day(s string) time.Time {
	t, err := domain.ParseDay(s)
	if err != nil {
		panic(fmt.Sprintf("bad fixture date %q: %v", s, err))
	}
	return t
}

// Float returns a pointer to f, for optional event fields.
func Float(f float64) *float64 {
	return &f
}

// Buy returns a BUY event
func Buy(date, symbol string, qty, price float64) domain.TransactionEvent {
	return domain.TransactionEvent{
		Date:     Day(date),
		Symbol:   symbol,
		Action:   domain.ActionBuy,
		Quantity: Float(qty),
		Price:    Float(price),
		Amount:   -qty * price,
	}
}

// Sell returns a SELL event
func Sell(date, symbol string, qty, price float64) domain.TransactionEvent {
	return domain.TransactionEvent{
		Date:     Day(date),
		Symbol:   symbol,
		Action:   domain.ActionSell,
		Quantity: Float(qty),
		Price:    Float(price),
		Amount:   qty * price,
	}
}

// Dividend returns a DIVIDEND event
func Dividend(date, symbol string, amount float64) domain.TransactionEvent {
	return domain.TransactionEvent{
		Date:   Day(date),
		Symbol: symbol,
		Action: domain.ActionDividend,
		Amount: amount,
	}
}

// NewLedgerFixture returns a small two-symbol ledger spanning January 2024.
func NewLedgerFixture() *domain.Ledger {
	ledger, err := domain.NewLedger([]domain.TransactionEvent{
		Buy("2024-01-02", "AAPL", 10, 185),
		Buy("2024-01-03", "MSFT", 5, 370),
		Dividend("2024-01-15", "AAPL", 2.4),
		Sell("2024-01-22", "AAPL", 4, 193),
	})
	if err != nil {
		panic(err)
	}
	return ledger
}

// NewPriceSeries returns one bar per weekday in [start, end] with closes
// starting at first and rising by step.
func NewPriceSeries(symbol, start, end string, first, step float64) []domain.PriceRecord {
	var bars []domain.PriceRecord
	price := first
	for d := Day(start); !d.After(Day(end)); d = d.AddDate(0, 0, 1) {
		if !utils.IsWeekday(d) {
			continue
		}
		bars = append(bars, domain.PriceRecord{
			Date:   d,
			Symbol: symbol,
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		})
		price += step
	}
	return bars
}

// InsertPrices tracks symbol in a migrated history database and writes bars to it.
func InsertPrices(db *sql.DB, symbol string, bars []domain.PriceRecord) error {
	if _, err := db.Exec(
		"INSERT OR IGNORE INTO securities (symbol, source, tracked_at) VALUES (?, 'fixture', ?)",
		symbol, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("failed to insert security: %w", err)
	}

	var id int64
	if err := db.QueryRow("SELECT id FROM securities WHERE symbol = ?", symbol).Scan(&id); err != nil {
		return fmt.Errorf("failed to read security id: %w", err)
	}

	for _, bar := range bars {
		if _, err := db.Exec(
			"INSERT OR REPLACE INTO daily_prices (security_id, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)",
			id, utils.DayUnix(bar.Date), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		); err != nil {
			return fmt.Errorf("failed to insert price: %w", err)
		}
	}
	return nil
}
