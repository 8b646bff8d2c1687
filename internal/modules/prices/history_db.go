// Package prices owns the local price store and resolves the price of a
// symbol at a date, falling back through progressively weaker sources.
package prices

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/utils"
	"github.com/rs/zerolog"
)

// PriceStore is the read side of the local price database.
type PriceStore interface {
	LookupSymbolID(ctx context.Context, symbol string) (int64, bool, error)
	LookupSymbolIDs(ctx context.Context, symbols []string) (map[string]int64, error)
	PricesInRange(ctx context.Context, ids map[string]int64, start, end time.Time) (map[string][]domain.PriceRecord, error)
	PriceOnOrBefore(ctx context.Context, symbol string, date time.Time) (domain.PriceRecord, bool, error)
	HasData(ctx context.Context, symbol string) (bool, error)
}

// PriceWriter persists newly discovered bars.
type PriceWriter interface {
	TrackSecurity(ctx context.Context, symbol, source string) (int64, error)
	SyncPrices(ctx context.Context, symbol string, bars []domain.PriceRecord) (int, error)
}

// HistoryDB provides access to historical price data
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
		now: time.Now,
	}
}

// LookupSymbolID returns the security id of a tracked symbol.
func (h *HistoryDB) LookupSymbolID(ctx context.Context, symbol string) (int64, bool, error) {
	var id int64
	err := h.db.QueryRowContext(ctx, "SELECT id FROM securities WHERE symbol = ?", normalizeSymbol(symbol)).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to lookup security %s: %w", symbol, err)
	}
	return id, true, nil
}

// LookupSymbolIDs resolves many symbols with one query. Untracked symbols are absent from the result.
func (h *HistoryDB) LookupSymbolIDs(ctx context.Context, symbols []string) (map[string]int64, error) {
	result := make(map[string]int64, len(symbols))
	if len(symbols) == 0 {
		return result, nil
	}

	args := make([]interface{}, len(symbols))
	for i, s := range symbols {
		args[i] = normalizeSymbol(s)
	}
	query := "SELECT id, symbol FROM securities WHERE symbol IN (" + placeholders(len(symbols)) + ")"

	done := utils.TimeQuery("lookup_symbol_ids", h.log)
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup securities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var symbol string
		if err := rows.Scan(&id, &symbol); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		result[symbol] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}
	done(int64(len(result)))

	return result, nil
}

// PricesInRange returns the bars of every given security within [start, end], one query for all ids.
// Each symbol's bars are ordered by date ascending.
func (h *HistoryDB) PricesInRange(ctx context.Context, ids map[string]int64, start, end time.Time) (map[string][]domain.PriceRecord, error) {
	result := make(map[string][]domain.PriceRecord, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	symbolByID := make(map[int64]string, len(ids))
	args := make([]interface{}, 0, len(ids)+2)
	for symbol, id := range ids {
		symbolByID[id] = symbol
		args = append(args, id)
	}
	args = append(args, utils.DayUnix(start), utils.DayUnix(end))

	query := `
		SELECT security_id, date, open, high, low, close, volume
		FROM daily_prices
		WHERE security_id IN (` + placeholders(len(ids)) + `)
		  AND date >= ? AND date <= ?
		ORDER BY security_id, date ASC
	`

	done := utils.TimeQuery("prices_in_range", h.log)
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices in range: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var id int64
		rec, err := scanRecord(rows, &id)
		if err != nil {
			return nil, err
		}
		rec.Symbol = symbolByID[id]
		result[rec.Symbol] = append(result[rec.Symbol], rec)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}
	done(count)

	return result, nil
}

// PriceOnOrBefore returns the latest bar dated on or before date.
func (h *HistoryDB) PriceOnOrBefore(ctx context.Context, symbol string, date time.Time) (domain.PriceRecord, bool, error) {
	symbol = normalizeSymbol(symbol)
	query := `
		SELECT p.security_id, p.date, p.open, p.high, p.low, p.close, p.volume
		FROM daily_prices p
		JOIN securities s ON s.id = p.security_id
		WHERE s.symbol = ? AND p.date <= ?
		ORDER BY p.date DESC
		LIMIT 1
	`

	rows, err := h.db.QueryContext(ctx, query, symbol, utils.DayUnix(date))
	if err != nil {
		return domain.PriceRecord{}, false, fmt.Errorf("failed to query price for %s: %w", symbol, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.PriceRecord{}, false, fmt.Errorf("error reading price for %s: %w", symbol, err)
		}
		return domain.PriceRecord{}, false, nil
	}

	var id int64
	rec, err := scanRecord(rows, &id)
	if err != nil {
		return domain.PriceRecord{}, false, err
	}
	rec.Symbol = symbol
	return rec, true, nil
}

// HasData reports whether any bar exists for the symbol.
func (h *HistoryDB) HasData(ctx context.Context, symbol string) (bool, error) {
	var exists int
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM daily_prices p
			JOIN securities s ON s.id = p.security_id
			WHERE s.symbol = ?
		)
	`, normalizeSymbol(symbol)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check price data for %s: %w", symbol, err)
	}
	return exists == 1, nil
}

// TrackSecurity registers a symbol in the store and returns its id. Already tracked symbols keep their id.
func (h *HistoryDB) TrackSecurity(ctx context.Context, symbol, source string) (int64, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return 0, fmt.Errorf("symbol cannot be empty")
	}

	_, err := h.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO securities (symbol, source, tracked_at) VALUES (?, ?, ?)",
		symbol, source, h.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to track security %s: %w", symbol, err)
	}

	id, _, err := h.LookupSymbolID(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SyncPrices upserts bars for a tracked symbol in a single transaction
// and stamps last_synced_at. The symbol is tracked first if needed.
func (h *HistoryDB) SyncPrices(ctx context.Context, symbol string, bars []domain.PriceRecord) (int, error) {
	id, err := h.TrackSecurity(ctx, symbol, "")
	if err != nil {
		return 0, err
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO daily_prices
		(security_id, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		if _, err := stmt.ExecContext(ctx, id, utils.DayUnix(bar.Date), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			return 0, fmt.Errorf("failed to insert price for %s on %s: %w", symbol, utils.FormatDate(bar.Date), err)
		}
	}

	if _, err := tx.ExecContext(ctx, "UPDATE securities SET last_synced_at = ? WHERE id = ?", h.now().Unix(), id); err != nil {
		return 0, fmt.Errorf("failed to update sync time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	h.log.Debug().
		Str("symbol", normalizeSymbol(symbol)).
		Int("count", len(bars)).
		Msg("Synced historical prices")

	return len(bars), nil
}

// TrackedSymbols returns every tracked symbol in ascending order.
func (h *HistoryDB) TrackedSymbols(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, "SELECT symbol FROM securities ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked securities: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}
	return symbols, nil
}

// LatestDate returns the date of the newest bar for a symbol.
func (h *HistoryDB) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	var dateUnix sql.NullInt64
	err := h.db.QueryRowContext(ctx, `
		SELECT MAX(p.date) FROM daily_prices p
		JOIN securities s ON s.id = p.security_id
		WHERE s.symbol = ?
	`, normalizeSymbol(symbol)).Scan(&dateUnix)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest date for %s: %w", symbol, err)
	}
	if !dateUnix.Valid {
		return time.Time{}, false, nil
	}
	return utils.UnixToDate(dateUnix.Int64), true, nil
}

func scanRecord(rows *sql.Rows, id *int64) (domain.PriceRecord, error) {
	var rec domain.PriceRecord
	var dateUnix sql.NullInt64
	var volume sql.NullInt64
	if err := rows.Scan(id, &dateUnix, &rec.Open, &rec.High, &rec.Low, &rec.Close, &volume); err != nil {
		return rec, fmt.Errorf("failed to scan daily price: %w", err)
	}
	if dateUnix.Valid {
		rec.Date = utils.UnixToDate(dateUnix.Int64)
	}
	if volume.Valid {
		rec.Volume = volume.Int64
	}
	return rec, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
