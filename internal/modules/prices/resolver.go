package prices

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultLookbackDays widens batch fetches backwards so a start date on a
// weekend or holiday still forward-fills from the preceding trading day.
const DefaultLookbackDays = 10

// LedgerPrices supplies trade prices as a last resort for symbols the store has never seen.
type LedgerPrices interface {
	NearestTransactionPrice(symbol string, date time.Time) (float64, bool)
}

// ResolverConfig tunes a Resolver
type ResolverConfig struct {
	PriceTTL     time.Duration
	RangeTTL     time.Duration
	LookbackDays int
}

// DefaultResolverConfig returns the default resolver settings.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		PriceTTL:     clientdata.TTLPriceCache,
		RangeTTL:     clientdata.TTLPriceCache,
		LookbackDays: DefaultLookbackDays,
	}
}

// Resolver resolves historical prices through four tiers:
// its own cache, the price store (forward-filled), the ledger's trade
// prices and finally discovery of the symbol from external sources.
// A Resolver belongs to one ledger session and is safe for concurrent use.
type Resolver struct {
	store   PriceStore
	tracker Tracker
	ledger  LedgerPrices

	prices *clientdata.TTLCache[string, float64]
	ranges *clientdata.TTLCache[string, []domain.PriceRecord]

	mu         sync.Mutex
	discovered map[string]bool
	group      singleflight.Group

	lookback int
	log      zerolog.Logger
}

// NewResolver creates a resolver. tracker and ledger may be nil, which disables tiers 4 and 3.
func NewResolver(store PriceStore, tracker Tracker, ledger LedgerPrices, cfg ResolverConfig, log zerolog.Logger) *Resolver {
	defaults := DefaultResolverConfig()
	if cfg.PriceTTL <= 0 {
		cfg.PriceTTL = defaults.PriceTTL
	}
	if cfg.RangeTTL <= 0 {
		cfg.RangeTTL = defaults.RangeTTL
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaults.LookbackDays
	}

	return &Resolver{
		store:      store,
		tracker:    tracker,
		ledger:     ledger,
		prices:     clientdata.NewTTLCache[string, float64](cfg.PriceTTL),
		ranges:     clientdata.NewTTLCache[string, []domain.PriceRecord](cfg.RangeTTL),
		discovered: make(map[string]bool),
		lookback:   cfg.LookbackDays,
		log:        log.With().Str("component", "price_resolver").Logger(),
	}
}

// Caches exposes the resolver caches to the cleanup sweep.
func (r *Resolver) Caches() []clientdata.Sweeper {
	return []clientdata.Sweeper{r.prices, r.ranges}
}

// GetPrice returns the price of symbol at date. A stored zero close is
// returned as 0 with a nil error. domain.ErrPriceUnavailable is returned
// once every tier has failed.
func (r *Resolver) GetPrice(ctx context.Context, symbol string, date time.Time) (float64, error) {
	symbol = normalizeSymbol(symbol)
	date = domain.Day(date)
	key := priceKey(symbol, date)

	if price, ok := r.prices.Get(key); ok {
		return price, nil
	}

	if price, ok := r.fromStore(ctx, symbol, date); ok {
		r.prices.Set(key, price)
		return price, nil
	}

	hasData, err := r.store.HasData(ctx, symbol)
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("Price store check failed")
	}
	if !hasData {
		if price, ok := r.fromLedger(symbol, date); ok {
			r.prices.Set(key, price)
			return price, nil
		}

		if r.discover(ctx, symbol) {
			if price, ok := r.fromStore(ctx, symbol, date); ok {
				r.prices.Set(key, price)
				return price, nil
			}
		}
	}

	return 0, fmt.Errorf("%s on %s: %w", symbol, date.Format(domain.DateLayout), domain.ErrPriceUnavailable)
}

func (r *Resolver) fromStore(ctx context.Context, symbol string, date time.Time) (float64, bool) {
	rec, ok, err := r.store.PriceOnOrBefore(ctx, symbol, date)
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("Price store lookup failed")
		return 0, false
	}
	if !ok {
		return 0, false
	}
	return rec.Close, true
}

func (r *Resolver) fromLedger(symbol string, date time.Time) (float64, bool) {
	if r.ledger == nil {
		return 0, false
	}
	return r.ledger.NearestTransactionPrice(symbol, date)
}

// discover asks the tracker for symbol at most once per resolver.
// Concurrent callers share the in-flight attempt, which runs detached from
// any one caller so a cancelled request cannot fail it for the others.
// Attempts ended by cancellation or timeout are not remembered.
func (r *Resolver) discover(ctx context.Context, symbol string) bool {
	if r.tracker == nil {
		return false
	}

	ch := r.group.DoChan(symbol, func() (interface{}, error) {
		r.mu.Lock()
		found, attempted := r.discovered[symbol]
		r.mu.Unlock()
		if attempted {
			return found, nil
		}

		found, err := r.tracker.EnsureTracked(context.WithoutCancel(ctx), symbol)
		if err != nil {
			r.log.Warn().Err(err).Str("symbol", symbol).Msg("Price discovery failed")
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false, nil
			}
		}

		r.mu.Lock()
		r.discovered[symbol] = found
		r.mu.Unlock()
		return found, nil
	})

	var v interface{}
	select {
	case res := <-ch:
		v = res.Val
	case <-ctx.Done():
		return false
	}

	found, _ := v.(bool)
	return found
}

// GetPricesBatch returns the bars of every symbol within [start, end], ascending.
// Uncached symbols are loaded with two queries in total. Symbols without bars are absent.
func (r *Resolver) GetPricesBatch(ctx context.Context, symbols []string, start, end time.Time) (map[string][]domain.PriceRecord, error) {
	start, end = domain.Day(start), domain.Day(end)
	result := make(map[string][]domain.PriceRecord, len(symbols))

	var uncached []string
	for _, symbol := range uniqueSymbols(symbols) {
		if bars, ok := r.ranges.Get(rangeKey(symbol, start, end)); ok {
			result[symbol] = bars
			continue
		}
		uncached = append(uncached, symbol)
	}
	if len(uncached) == 0 {
		return result, nil
	}

	ids, err := r.store.LookupSymbolIDs(ctx, uncached)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve symbols: %w", err)
	}
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.store.PricesInRange(ctx, ids, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	for symbol, bars := range rows {
		if len(bars) == 0 {
			continue
		}
		result[symbol] = bars
		// empty ranges are not cached so a later discovery is visible
		r.ranges.Set(rangeKey(symbol, start, end), bars)
	}

	return result, nil
}

// GetPricesAtDatesBatch returns, per symbol, the latest price on or before each date.
// Dates with no resolvable price are absent from the symbol's map.
func (r *Resolver) GetPricesAtDatesBatch(ctx context.Context, symbols []string, dates []time.Time) (map[string]map[time.Time]float64, error) {
	result := make(map[string]map[time.Time]float64)
	days := uniqueDays(dates)
	symbols = uniqueSymbols(symbols)
	if len(days) == 0 || len(symbols) == 0 {
		return result, nil
	}

	first, last := days[0], days[len(days)-1]
	fetchStart := first.AddDate(0, 0, -r.lookback)

	series, err := r.GetPricesBatch(ctx, symbols, fetchStart, last)
	if err != nil {
		return nil, err
	}

	var unknown []string
	for _, symbol := range symbols {
		bars := series[symbol]
		seed := r.seed(ctx, symbol, bars, first)
		if len(bars) == 0 && seed == nil {
			hasData, err := r.store.HasData(ctx, symbol)
			if err != nil {
				r.log.Warn().Err(err).Str("symbol", symbol).Msg("Price store check failed")
			}
			if !hasData {
				unknown = append(unknown, symbol)
			}
			continue
		}
		result[symbol] = r.fill(symbol, bars, seed, days)
	}

	if len(unknown) == 0 {
		return result, nil
	}

	var discovered []string
	for _, symbol := range unknown {
		if byDate := r.fillFromLedger(symbol, days); len(byDate) > 0 {
			result[symbol] = byDate
			continue
		}
		if r.discover(ctx, symbol) {
			discovered = append(discovered, symbol)
		}
	}

	if len(discovered) > 0 {
		refetched, err := r.GetPricesBatch(ctx, discovered, fetchStart, last)
		if err != nil {
			r.log.Warn().Err(err).Strs("symbols", discovered).Msg("Refetch after discovery failed")
			return result, nil
		}
		for _, symbol := range discovered {
			bars := refetched[symbol]
			seed := r.seed(ctx, symbol, bars, first)
			if len(bars) == 0 && seed == nil {
				continue
			}
			result[symbol] = r.fill(symbol, bars, seed, days)
		}
	}

	return result, nil
}

// seed returns the latest bar on or before first when the fetched window does not cover it.
func (r *Resolver) seed(ctx context.Context, symbol string, bars []domain.PriceRecord, first time.Time) *domain.PriceRecord {
	if len(bars) > 0 && !bars[0].Date.After(first) {
		return nil
	}
	rec, ok, err := r.store.PriceOnOrBefore(ctx, symbol, first)
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("Price store lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	return &rec
}

// fill forward-fills bars onto days. Both are ascending.
func (r *Resolver) fill(symbol string, bars []domain.PriceRecord, seed *domain.PriceRecord, days []time.Time) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(days))
	var current *domain.PriceRecord
	if seed != nil {
		current = seed
	}

	i := 0
	for _, day := range days {
		for i < len(bars) && !bars[i].Date.After(day) {
			current = &bars[i]
			i++
		}
		if current == nil {
			continue
		}
		out[day] = current.Close
		r.prices.Set(priceKey(symbol, day), current.Close)
	}
	return out
}

func (r *Resolver) fillFromLedger(symbol string, days []time.Time) map[time.Time]float64 {
	if r.ledger == nil {
		return nil
	}
	out := make(map[time.Time]float64)
	for _, day := range days {
		if price, ok := r.ledger.NearestTransactionPrice(symbol, day); ok {
			out[day] = price
			r.prices.Set(priceKey(symbol, day), price)
		}
	}
	return out
}

func priceKey(symbol string, date time.Time) string {
	return symbol + "|" + date.Format(domain.DateLayout)
}

func rangeKey(symbol string, start, end time.Time) string {
	return symbol + "|" + start.Format(domain.DateLayout) + "|" + end.Format(domain.DateLayout)
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = normalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func uniqueDays(dates []time.Time) []time.Time {
	seen := make(map[time.Time]bool, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		d = domain.Day(d)
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
