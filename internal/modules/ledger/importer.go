package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// Header aliases accepted for each column.
var columnAliases = map[string][]string{
	"date":     {"date", "trade_date", "transaction_date"},
	"symbol":   {"symbol", "ticker"},
	"action":   {"action", "type", "side"},
	"quantity": {"quantity", "qty", "shares"},
	"price":    {"price", "unit_price"},
	"amount":   {"amount", "total", "value"},
}

var requiredColumns = []string{"date", "action", "amount"}

var dateLayouts = []string{domain.DateLayout, "2006/01/02", time.RFC3339}

// LoadFile parses the CSV ledger at path.
func LoadFile(path string) (*domain.Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	ledger, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger %s: %w", path, err)
	}
	return ledger, nil
}

// ParseCSV reads a ledger with a header row naming the columns
// date,symbol,action,quantity,price,amount. Malformed rows are rejected with a
// *domain.LedgerValidationError carrying the 1-based data row.
func ParseCSV(r io.Reader) (*domain.Ledger, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return domain.NewLedger(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var events []domain.TransactionEvent
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, &domain.LedgerValidationError{Row: row, Field: "row", Reason: err.Error()}
		}

		event, err := parseRecord(row, record, columns)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return domain.NewLedger(events)
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		for column, aliases := range columnAliases {
			for _, alias := range aliases {
				if name == alias {
					if _, dup := columns[column]; !dup {
						columns[column] = i
					}
				}
			}
		}
	}
	for _, column := range requiredColumns {
		if _, ok := columns[column]; !ok {
			return nil, &domain.LedgerValidationError{Field: "header", Value: strings.Join(header, ","), Reason: "missing column " + column}
		}
	}
	return columns, nil
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRecord(row int, record []string, columns map[string]int) (domain.TransactionEvent, error) {
	var event domain.TransactionEvent

	rawDate := field(record, columns, "date")
	date, err := parseDate(rawDate)
	if err != nil {
		return event, &domain.LedgerValidationError{Row: row, Field: "date", Value: rawDate, Reason: "expected YYYY-MM-DD"}
	}
	event.Date = date
	event.Symbol = strings.ToUpper(field(record, columns, "symbol"))
	event.Action = domain.ParseAction(field(record, columns, "action"))

	rawAmount := field(record, columns, "amount")
	if rawAmount == "" {
		return event, &domain.LedgerValidationError{Row: row, Field: "amount", Reason: "amount is required"}
	}
	amount, err := parseNumber(rawAmount)
	if err != nil {
		return event, &domain.LedgerValidationError{Row: row, Field: "amount", Value: rawAmount, Reason: "not a number"}
	}
	event.Amount = amount

	for _, name := range []string{"quantity", "price"} {
		raw := field(record, columns, name)
		if raw == "" {
			continue
		}
		v, err := parseNumber(raw)
		if err != nil {
			return event, &domain.LedgerValidationError{Row: row, Field: name, Value: raw, Reason: "not a number"}
		}
		if name == "quantity" {
			// brokers export sells with negative quantities
			if event.Action == domain.ActionSell && v < 0 {
				v = -v
			}
			event.Quantity = &v
		} else {
			event.Price = &v
		}
	}

	return event, nil
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return domain.Day(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parseNumber accepts thousands separators and a leading currency sign.
func parseNumber(s string) (float64, error) {
	s = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
