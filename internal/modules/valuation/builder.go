// Package valuation turns a ledger and a price source into a sampled
// portfolio value series.
package valuation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/holdings"
	"github.com/aristath/folio/internal/modules/sampling"
	"github.com/aristath/folio/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PriceSource resolves prices for many symbols at many dates in one call.
type PriceSource interface {
	GetPricesAtDatesBatch(ctx context.Context, symbols []string, dates []time.Time) (map[string]map[time.Time]float64, error)
}

// Builder builds valuation series and caches completed ones.
// A Builder belongs to one ledger session.
type Builder struct {
	prices PriceSource
	cache  *clientdata.TTLCache[string, domain.Series]
	log    zerolog.Logger
}

// NewBuilder creates a series builder. A non-positive ttl uses the default series TTL.
func NewBuilder(prices PriceSource, ttl time.Duration, log zerolog.Logger) *Builder {
	if ttl <= 0 {
		ttl = clientdata.TTLSeriesCache
	}
	return &Builder{
		prices: prices,
		cache:  clientdata.NewTTLCache[string, domain.Series](ttl),
		log:    log.With().Str("component", "valuation_builder").Logger(),
	}
}

// Cache exposes the series cache to the cleanup sweep.
func (b *Builder) Cache() clientdata.Sweeper {
	return b.cache
}

// Build values the ledger at every sampled date in [start, end].
// An invalid range or a ledger with no events inside [start, end] gives an
// empty series and a nil error. A cancelled build returns ctx.Err() and is not cached.
func (b *Builder) Build(ctx context.Context, ledger *domain.Ledger, start, end time.Time) (domain.Series, error) {
	start, end = domain.Day(start), domain.Day(end)
	series := domain.Series{Start: start, End: end, Granularity: domain.GranularityDaily}
	if ledger == nil {
		return series, nil
	}
	series.LedgerVersion = ledger.Version()

	if start.IsZero() || end.IsZero() || end.Before(start) || ledger.Empty() {
		return series, nil
	}
	forced := ledger.DatesBetween(start, end)
	if len(forced) == 0 {
		return series, nil
	}

	key := seriesKey(ledger.Version(), start, end)
	if cached, ok := b.cache.Get(key); ok {
		return cached, nil
	}

	runID := uuid.New().String()
	log := b.log.With().Str("run_id", runID).Logger()
	stopwatch := utils.StartStopwatch("valuation_build", log)

	schedule := sampling.Sample(start, end, forced)
	series.Granularity = schedule.Granularity

	replayer := holdings.NewReplayer(ledger)
	snapshots := make([]domain.HoldingsSnapshot, len(schedule.Dates))
	held := make(map[string]bool)
	for i, date := range schedule.Dates {
		if err := ctx.Err(); err != nil {
			return domain.Series{}, err
		}
		snapshots[i] = replayer.AdvanceTo(date)
		for symbol := range snapshots[i] {
			held[symbol] = true
		}
	}

	symbols := make([]string, 0, len(held))
	for symbol := range held {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	prices := map[string]map[time.Time]float64{}
	if len(symbols) > 0 {
		var err error
		prices, err = b.prices.GetPricesAtDatesBatch(ctx, symbols, schedule.Dates)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Series{}, ctxErr
			}
			return domain.Series{}, fmt.Errorf("failed to resolve prices: %w", err)
		}
	}

	lastKnown := make(map[string]float64)
	points := make([]domain.ValuationPoint, 0, len(schedule.Dates))
	degradedPoints := 0
	for i, date := range schedule.Dates {
		if err := ctx.Err(); err != nil {
			return domain.Series{}, err
		}

		point := valuePoint(date, snapshots[i], prices, lastKnown)
		if point.IsDegraded() {
			degradedPoints++
		}
		points = append(points, point)
	}
	series.Points = points

	b.cache.Set(key, series)

	stopwatch.Stop(map[string]interface{}{
		"points":          len(points),
		"symbols":         len(symbols),
		"granularity":     string(schedule.Granularity),
		"degraded_points": degradedPoints,
	})
	if degradedPoints > 0 {
		log.Warn().
			Int("degraded_points", degradedPoints).
			Int("points", len(points)).
			Msg("Valuation series has stale or missing prices")
	}

	return series, nil
}

// valuePoint prices one snapshot. A symbol without a price at date falls back
// to the last price seen earlier in the run (Degraded) or is left out (Missing).
func valuePoint(date time.Time, snapshot domain.HoldingsSnapshot, prices map[string]map[time.Time]float64, lastKnown map[string]float64) domain.ValuationPoint {
	point := domain.ValuationPoint{
		Date:     date,
		Holdings: snapshot,
		Values:   make(map[string]float64, len(snapshot)),
		Prices:   make(map[string]float64, len(snapshot)),
	}

	total := 0.0
	for _, symbol := range snapshot.Symbols() {
		qty := snapshot[symbol]
		price, ok := prices[symbol][date]
		if ok {
			lastKnown[symbol] = price
		} else if price, ok = lastKnown[symbol]; ok {
			point.Degraded = append(point.Degraded, symbol)
		} else {
			point.Missing = append(point.Missing, symbol)
			continue
		}

		value := qty * price
		point.Prices[symbol] = price
		point.Values[symbol] = value
		total += value
	}
	point.TotalValue = total

	return point
}

// BuildBenchmark values one unit of symbol on the schedule's dates.
func (b *Builder) BuildBenchmark(ctx context.Context, symbol string, schedule sampling.Schedule) (domain.Series, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	series := domain.Series{Granularity: schedule.Granularity}
	if symbol == "" || len(schedule.Dates) == 0 {
		return series, nil
	}
	series.Start = schedule.Dates[0]
	series.End = schedule.Dates[len(schedule.Dates)-1]

	prices, err := b.prices.GetPricesAtDatesBatch(ctx, []string{symbol}, schedule.Dates)
	if err != nil {
		return domain.Series{}, fmt.Errorf("failed to resolve benchmark %s: %w", symbol, err)
	}

	lastKnown := make(map[string]float64)
	for _, date := range schedule.Dates {
		if err := ctx.Err(); err != nil {
			return domain.Series{}, err
		}
		series.Points = append(series.Points, valuePoint(date, domain.HoldingsSnapshot{symbol: 1}, prices, lastKnown))
	}

	return series, nil
}

func seriesKey(version string, start, end time.Time) string {
	return version + "|" + start.Format(domain.DateLayout) + "|" + end.Format(domain.DateLayout)
}
