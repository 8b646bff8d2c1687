package di

import (
	"context"
	"strings"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/modules/prices"
	"github.com/aristath/folio/internal/utils"
	"github.com/rs/zerolog"
)

// StartupSymbols returns the benchmark and watchlist symbols, deduplicated
// and sorted.
func StartupSymbols(cfg *config.Config) []string {
	return utils.ParseSymbols(strings.Join(append([]string{cfg.Benchmark}, cfg.Watchlist...), ","))
}

// TrackStartupSymbols makes sure every symbol has stored history, fetching it
// when missing. Failures are logged; it returns the number of symbols tracked.
func TrackStartupSymbols(ctx context.Context, tracker prices.Tracker, symbols []string, log zerolog.Logger) int {
	stopwatch := utils.StartStopwatch("startup_tracking", log)

	tracked := 0
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		found, err := tracker.EnsureTracked(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to track startup symbol")
			continue
		}
		if !found {
			log.Warn().Str("symbol", symbol).Msg("No price history found for startup symbol")
			continue
		}
		tracked++
	}

	stopwatch.Stop(map[string]interface{}{"symbols": len(symbols)})
	log.Info().
		Int("tracked", tracked).
		Int("requested", len(symbols)).
		Msg("Startup symbols checked")
	return tracked
}
