package prices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Tracker makes a symbol known to the price store, fetching its history if needed.
// It reports whether the symbol now has data.
type Tracker interface {
	EnsureTracked(ctx context.Context, symbol string) (bool, error)
}

// DiscoveryLog remembers recent discovery outcomes across restarts.
type DiscoveryLog interface {
	RecordDiscovery(attempt clientdata.DiscoveryAttempt) error
	RecentDiscovery(symbol string) (*clientdata.DiscoveryAttempt, error)
}

// DiscoveryConfig tunes history discovery
type DiscoveryConfig struct {
	Timeout      time.Duration // bound on one EnsureTracked call, all sources included
	Retry        RetryConfig
	HistoryYears int // depth of history fetched for a new symbol
}

// DefaultDiscoveryConfig returns the default discovery settings.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Timeout:      30 * time.Second,
		Retry:        DefaultRetryConfig(),
		HistoryYears: 10,
	}
}

// Discovery fetches the history of unknown symbols from external sources, in
// order, and writes the first usable result back to the price store.
type Discovery struct {
	store     PriceWriter
	fetchers  []Fetcher
	validator *PriceValidator
	attempts  DiscoveryLog
	cfg       DiscoveryConfig
	writeMu   sync.Mutex
	now       func() time.Time
	log       zerolog.Logger
}

// NewDiscovery creates a discovery service. attempts may be nil.
func NewDiscovery(store PriceWriter, fetchers []Fetcher, attempts DiscoveryLog, cfg DiscoveryConfig, log zerolog.Logger) *Discovery {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDiscoveryConfig().Timeout
	}
	if cfg.HistoryYears <= 0 {
		cfg.HistoryYears = DefaultDiscoveryConfig().HistoryYears
	}
	return &Discovery{
		store:     store,
		fetchers:  fetchers,
		validator: NewPriceValidator(log),
		attempts:  attempts,
		cfg:       cfg,
		now:       time.Now,
		log:       log.With().Str("service", "price_discovery").Logger(),
	}
}

// EnsureTracked fetches and stores the history of symbol. It returns false without
// contacting any source when a failed attempt for the symbol is still remembered.
func (d *Discovery) EnsureTracked(ctx context.Context, symbol string) (bool, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return false, fmt.Errorf("symbol cannot be empty")
	}

	if d.attempts != nil {
		recent, err := d.attempts.RecentDiscovery(symbol)
		if err != nil {
			d.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read discovery log")
		} else if recent != nil && !recent.Success {
			d.log.Debug().
				Str("symbol", symbol).
				Time("attempted_at", recent.AttemptedAt).
				Msg("Skipping discovery, recent attempt failed")
			return false, nil
		}
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	end := d.now().UTC()
	start := end.AddDate(-d.cfg.HistoryYears, 0, 0)

	var errs []error
	for _, fetcher := range d.fetchers {
		bars, err := d.fetch(ctx, fetcher, symbol, start, end)
		if err != nil {
			errs = append(errs, err)
			d.log.Warn().Err(err).Str("symbol", symbol).Str("source", fetcher.Name()).Msg("Discovery source failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if err := d.writeBack(ctx, fetcher.Name(), symbol, bars); err != nil {
			d.record(symbol, fetcher.Name(), 0, err)
			return false, err
		}

		d.record(symbol, fetcher.Name(), len(bars), nil)
		d.log.Info().
			Str("symbol", symbol).
			Str("source", fetcher.Name()).
			Int("bars", len(bars)).
			Msg("Discovered price history")
		return true, nil
	}

	err := &domain.DownstreamFetchError{
		Err:    errors.Join(errs...),
		Source: d.sourceNames(),
		Symbol: symbol,
	}
	if len(errs) == 0 {
		err.Err = errors.New("no price sources configured")
	}
	// a caller that gave up is not a failed discovery
	if parent.Err() == nil {
		d.record(symbol, d.sourceNames(), 0, err)
	}
	return false, err
}

func (d *Discovery) fetch(ctx context.Context, fetcher Fetcher, symbol string, start, end time.Time) ([]domain.PriceRecord, error) {
	var bars []domain.PriceRecord
	err := WithRetry(ctx, d.cfg.Retry, func(ctx context.Context) error {
		fetched, err := fetcher.FetchDaily(ctx, symbol, start, end)
		if err != nil {
			return err
		}
		bars = fetched
		return nil
	})
	if err != nil {
		return nil, &domain.DownstreamFetchError{Err: err, Source: fetcher.Name(), Symbol: symbol}
	}

	bars = d.validator.ValidateBars(symbol, bars)
	if len(bars) == 0 {
		return nil, &domain.DownstreamFetchError{Err: errors.New("no usable bars"), Source: fetcher.Name(), Symbol: symbol}
	}
	return bars, nil
}

// writeBack is the only serialized step of a discovery.
func (d *Discovery) writeBack(ctx context.Context, source, symbol string, bars []domain.PriceRecord) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if _, err := d.store.TrackSecurity(ctx, symbol, source); err != nil {
		return &domain.DownstreamFetchError{Err: err, Source: "price_store", Symbol: symbol}
	}
	if _, err := d.store.SyncPrices(ctx, symbol, bars); err != nil {
		return &domain.DownstreamFetchError{Err: err, Source: "price_store", Symbol: symbol}
	}
	return nil
}

func (d *Discovery) record(symbol, source string, bars int, err error) {
	if d.attempts == nil {
		return
	}
	attempt := clientdata.DiscoveryAttempt{
		AttemptedAt: d.now().UTC(),
		Symbol:      symbol,
		Source:      source,
		Bars:        bars,
		Success:     err == nil,
	}
	if err != nil {
		attempt.Error = err.Error()
	}
	if recErr := d.attempts.RecordDiscovery(attempt); recErr != nil {
		d.log.Warn().Err(recErr).Str("symbol", symbol).Msg("Failed to record discovery attempt")
	}
}

func (d *Discovery) sourceNames() string {
	names := make([]string, len(d.fetchers))
	for i, f := range d.fetchers {
		names[i] = f.Name()
	}
	return strings.Join(names, ",")
}
