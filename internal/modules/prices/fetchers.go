package prices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/utils"
	"github.com/go-resty/resty/v2"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"
)

// Fetcher downloads daily bars for a symbol from an external source.
type Fetcher interface {
	Name() string
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceRecord, error)
}

// YahooFetcher reads daily bars from the Yahoo Finance chart API.
type YahooFetcher struct{}

// NewYahooFetcher creates a Yahoo Finance fetcher
func NewYahooFetcher() *YahooFetcher {
	return &YahooFetcher{}
}

// Name returns the source name
func (f *YahooFetcher) Name() string {
	return "yahoo"
}

// FetchDaily returns the daily bars of symbol between start and end, ascending.
func (f *YahooFetcher) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceRecord, error) {
	symbol = normalizeSymbol(symbol)
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	var bars []domain.PriceRecord
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := iter.Bar()
		bars = append(bars, domain.PriceRecord{
			Date:   utils.UnixToDate(int64(bar.Timestamp)),
			Symbol: symbol,
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  bar.Close.InexactFloat64(),
			Volume: int64(bar.Volume),
		})
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
	}

	return bars, nil
}

const eodhdBaseURL = "https://eodhd.com/api"

// EODHDFetcher reads end-of-day bars from the EODHD REST API.
type EODHDFetcher struct {
	client *resty.Client
	apiKey string
}

// NewEODHDFetcher creates an EODHD fetcher. An empty baseURL selects the public endpoint.
func NewEODHDFetcher(apiKey, baseURL string) *EODHDFetcher {
	if baseURL == "" {
		baseURL = eodhdBaseURL
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)

	return &EODHDFetcher{
		client: client,
		apiKey: apiKey,
	}
}

// Name returns the source name
func (f *EODHDFetcher) Name() string {
	return "eodhd"
}

type eodhdBar struct {
	Date          string          `json:"date"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	AdjustedClose decimal.Decimal `json:"adjusted_close"`
	Volume        int64           `json:"volume"`
}

// FetchDaily returns the daily bars of symbol between start and end, ascending.
// Symbols without an exchange suffix are queried on the US exchange.
func (f *EODHDFetcher) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceRecord, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("EODHD API key not configured")
	}

	symbol = normalizeSymbol(symbol)
	ticker := symbol
	if !strings.Contains(ticker, ".") {
		ticker += ".US"
	}

	var rows []eodhdBar
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_token": f.apiKey,
			"fmt":       "json",
			"period":    "d",
			"from":      utils.FormatDate(start),
			"to":        utils.FormatDate(end),
		}).
		SetResult(&rows).
		Get("/eod/" + ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eod data for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("eodhd returned %s for %s", resp.Status(), symbol)
	}

	bars := make([]domain.PriceRecord, 0, len(rows))
	for _, row := range rows {
		date, err := domain.ParseDay(row.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse eodhd date %q: %w", row.Date, err)
		}
		bars = append(bars, domain.PriceRecord{
			Date:   date,
			Symbol: symbol,
			Open:   row.Open.InexactFloat64(),
			High:   row.High.InexactFloat64(),
			Low:    row.Low.InexactFloat64(),
			Close:  row.Close.InexactFloat64(),
			Volume: row.Volume,
		})
	}

	return bars, nil
}
