package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// RefreshStore is the part of the price store the refresh job needs.
type RefreshStore interface {
	TrackedSymbols(ctx context.Context) ([]string, error)
	LatestDate(ctx context.Context, symbol string) (time.Time, bool, error)
	SyncPrices(ctx context.Context, symbol string, bars []domain.PriceRecord) (int, error)
}

// RefreshJob appends recent bars for every tracked symbol.
type RefreshJob struct {
	store     RefreshStore
	fetchers  []Fetcher
	validator *PriceValidator
	retry     RetryConfig
	timeout   time.Duration
	overlap   int // days re-fetched before the newest stored bar
	now       func() time.Time
	log       zerolog.Logger
}

// NewRefreshJob creates a new price refresh job
func NewRefreshJob(store RefreshStore, fetchers []Fetcher, cfg DiscoveryConfig, log zerolog.Logger) *RefreshJob {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDiscoveryConfig().Timeout
	}
	return &RefreshJob{
		store:     store,
		fetchers:  fetchers,
		validator: NewPriceValidator(log),
		retry:     cfg.Retry,
		timeout:   cfg.Timeout,
		overlap:   5,
		now:       time.Now,
		log:       log.With().Str("job", "price_refresh").Logger(),
	}
}

// Run executes the refresh. A failing symbol is logged and skipped.
func (j *RefreshJob) Run() error {
	ctx := context.Background()

	symbols, err := j.store.TrackedSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tracked symbols: %w", err)
	}

	today := domain.Day(j.now().UTC())
	refreshed, failed := 0, 0
	for _, symbol := range symbols {
		if err := j.refreshSymbol(ctx, symbol, today); err != nil {
			failed++
			j.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to refresh prices")
			continue
		}
		refreshed++
	}

	j.log.Info().
		Int("refreshed", refreshed).
		Int("failed", failed).
		Msg("Price refresh completed")

	return nil
}

func (j *RefreshJob) refreshSymbol(ctx context.Context, symbol string, today time.Time) error {
	latest, ok, err := j.store.LatestDate(ctx, symbol)
	if err != nil {
		return err
	}
	if !ok {
		latest = today.AddDate(-1, 0, 0)
	}
	start := latest.AddDate(0, 0, -j.overlap)
	if !start.Before(today) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	var lastErr error
	for _, fetcher := range j.fetchers {
		var bars []domain.PriceRecord
		err := WithRetry(ctx, j.retry, func(ctx context.Context) error {
			fetched, err := fetcher.FetchDaily(ctx, symbol, start, today)
			if err != nil {
				return err
			}
			bars = fetched
			return nil
		})
		if err != nil {
			lastErr = &domain.DownstreamFetchError{Err: err, Source: fetcher.Name(), Symbol: symbol}
			continue
		}

		bars = j.validator.ValidateBars(symbol, bars)
		if len(bars) == 0 {
			return nil
		}
		_, err = j.store.SyncPrices(ctx, symbol, bars)
		return err
	}

	if lastErr == nil {
		return fmt.Errorf("no price sources configured")
	}
	return lastErr
}

// Name returns the job name for scheduling and logging.
func (j *RefreshJob) Name() string {
	return "price_refresh"
}
