// Package portfolio answers holdings, valuation and analytics queries against
// the active ledger.
package portfolio

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/analytics"
	"github.com/aristath/folio/internal/modules/holdings"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/prices"
	"github.com/aristath/folio/internal/modules/sampling"
	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/rs/zerolog"
)

// LedgerSource publishes the active ledger and notifies on replacement.
type LedgerSource interface {
	Current() *domain.Ledger
	OnReplace(l ledger.ReplaceListener)
}

// Config tunes the per-session caches and analytics defaults.
type Config struct {
	Resolver     prices.ResolverConfig
	SeriesTTL    time.Duration
	Benchmark    string
	RiskFreeRate float64
}

// session binds one ledger to the resolver and builder that serve it.
// Replacing the ledger replaces the whole session, which drops its caches.
type session struct {
	ledger   *domain.Ledger
	resolver *prices.Resolver
	builder  *valuation.Builder
}

// Service is the query surface over the active ledger session.
type Service struct {
	store   prices.PriceStore
	tracker prices.Tracker
	cfg     Config
	current atomic.Pointer[session]
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates a portfolio service. tracker may be nil, which disables
// discovery of symbols missing from the store.
func NewService(store prices.PriceStore, tracker prices.Tracker, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		tracker: tracker,
		cfg:     cfg,
		now:     time.Now,
		log:     log.With().Str("service", "portfolio").Logger(),
	}
}

// Attach loads the source's current ledger and follows its replacements.
func (s *Service) Attach(source LedgerSource) {
	source.OnReplace(s.Load)
	if l := source.Current(); l != nil {
		s.Load(l)
	}
}

// Load starts a new session for ledger. Queries already running keep the
// session they started with.
func (s *Service) Load(l *domain.Ledger) {
	if l == nil {
		s.current.Store(nil)
		return
	}

	resolver := prices.NewResolver(s.store, s.tracker, l, s.cfg.Resolver, s.log)
	s.current.Store(&session{
		ledger:   l,
		resolver: resolver,
		builder:  valuation.NewBuilder(resolver, s.cfg.SeriesTTL, s.log),
	})

	s.log.Info().
		Str("version", l.Version()).
		Int("events", l.Len()).
		Msg("Portfolio session started")
}

// Sweepers returns the caches of the active session for the cleanup job.
func (s *Service) Sweepers() []clientdata.Sweeper {
	sess := s.current.Load()
	if sess == nil {
		return nil
	}
	return append(sess.resolver.Caches(), sess.builder.Cache())
}

// Ledger returns the ledger of the active session, or nil.
func (s *Service) Ledger() *domain.Ledger {
	if sess := s.current.Load(); sess != nil {
		return sess.ledger
	}
	return nil
}

func (s *Service) session() (*session, error) {
	sess := s.current.Load()
	if sess == nil {
		return nil, domain.ErrNoLedger
	}
	return sess, nil
}

// CurrentHoldings returns the positions after every event in the ledger.
func (s *Service) CurrentHoldings() (domain.HoldingsSnapshot, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	return holdings.CurrentHoldings(sess.ledger), nil
}

// HoldingsAt returns the positions after every event dated on or before date.
func (s *Service) HoldingsAt(date time.Time) (domain.HoldingsSnapshot, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	return holdings.HoldingsAt(sess.ledger, date), nil
}

// CostBasis returns average-cost positions as of date.
func (s *Service) CostBasis(date time.Time) (map[string]domain.PositionCost, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	return holdings.CostBasis(sess.ledger, date), nil
}

// ValuationSeries builds the value series over [start, end]. A zero start
// defaults to the first ledger date and a zero end to today.
func (s *Service) ValuationSeries(ctx context.Context, start, end time.Time) (domain.Series, error) {
	sess, err := s.session()
	if err != nil {
		return domain.Series{}, err
	}
	start, end = s.bounds(sess.ledger, start, end)
	return sess.builder.Build(ctx, sess.ledger, start, end)
}

// Analytics builds the series over [start, end] and summarizes it. An empty
// benchmark uses the configured one, and a negative rf the configured rate.
// A benchmark that cannot be priced is logged and left out of the report.
func (s *Service) Analytics(ctx context.Context, start, end time.Time, benchmark string, rf float64) (analytics.Report, error) {
	sess, err := s.session()
	if err != nil {
		return analytics.Report{}, err
	}
	start, end = s.bounds(sess.ledger, start, end)

	series, err := sess.builder.Build(ctx, sess.ledger, start, end)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("failed to build valuation series: %w", err)
	}

	if benchmark == "" {
		benchmark = s.cfg.Benchmark
	}
	if rf < 0 {
		rf = s.cfg.RiskFreeRate
	}

	var bench *domain.Series
	if benchmark != "" && !series.Empty() {
		schedule := sampling.Schedule{Granularity: series.Granularity, Dates: series.Dates()}
		b, err := sess.builder.BuildBenchmark(ctx, benchmark, schedule)
		switch {
		case err != nil && ctx.Err() != nil:
			return analytics.Report{}, ctx.Err()
		case err != nil:
			s.log.Warn().Err(err).Str("benchmark", benchmark).Msg("Benchmark unavailable, skipping regression")
		default:
			bench = &b
		}
	}

	return analytics.Summarize(series, bench, rf), nil
}

func (s *Service) bounds(l *domain.Ledger, start, end time.Time) (time.Time, time.Time) {
	if start.IsZero() && !l.Empty() {
		start = l.MinDate()
	}
	if end.IsZero() {
		end = domain.Day(s.now())
	}
	return start, end
}
