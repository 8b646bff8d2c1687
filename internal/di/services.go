package di

import (
	"context"
	"fmt"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/modules/ledger"
	ledgerhandlers "github.com/aristath/folio/internal/modules/ledger/handlers"
	"github.com/aristath/folio/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/folio/internal/modules/portfolio/handlers"
	"github.com/aristath/folio/internal/modules/prices"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/server"
	"github.com/rs/zerolog"
)

// DiscoveryConfig derives the discovery settings from cfg
func DiscoveryConfig(cfg *config.Config) prices.DiscoveryConfig {
	dc := prices.DefaultDiscoveryConfig()
	dc.Timeout = cfg.DiscoveryTimeout
	dc.Retry.MaxRetries = cfg.DiscoveryRetries
	return dc
}

// InitializeServices creates repositories, price sources, services and handlers.
// A configured ledger file that fails to load is an error.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.PriceStore = prices.NewHistoryDB(container.HistoryDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	container.Fetchers = []prices.Fetcher{prices.NewYahooFetcher()}
	if cfg.EODHDAPIKey != "" {
		container.Fetchers = append(container.Fetchers, prices.NewEODHDFetcher(cfg.EODHDAPIKey, cfg.EODHDBaseURL))
	}

	var tracker prices.Tracker
	if !cfg.DisableDiscovery {
		container.Discovery = prices.NewDiscovery(
			container.PriceStore,
			container.Fetchers,
			container.ClientDataRepo,
			DiscoveryConfig(cfg),
			log,
		)
		tracker = container.Discovery
	} else {
		log.Info().Msg("Price discovery disabled")
	}

	// Ledger
	container.LedgerStore = ledger.NewStore(log)
	if cfg.LedgerCSV != "" {
		l, err := ledger.LoadFile(cfg.LedgerCSV)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}
		if _, err := container.LedgerStore.Replace(l); err != nil {
			return fmt.Errorf("failed to publish ledger: %w", err)
		}
	}

	// Portfolio
	resolverCfg := prices.DefaultResolverConfig()
	resolverCfg.PriceTTL = cfg.PriceCacheTTL
	resolverCfg.RangeTTL = cfg.PriceCacheTTL

	container.PortfolioService = portfolio.NewService(container.PriceStore, tracker, portfolio.Config{
		Resolver:     resolverCfg,
		SeriesTTL:    cfg.SeriesCacheTTL,
		Benchmark:    cfg.Benchmark,
		RiskFreeRate: cfg.RiskFreeRate,
	}, log)
	container.PortfolioService.Attach(container.LedgerStore)

	// Backups
	if cfg.Backup.Enabled() {
		client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			client,
			container.Databases(),
			cfg.DataDir,
			cfg.Backup.Prefix,
			server.Version,
			log,
		)
	}

	// Handlers
	container.LedgerHandler = ledgerhandlers.NewHandler(container.LedgerStore, log)
	container.PortfolioHandler = portfoliohandlers.NewHandler(container.PortfolioService, log)

	log.Info().
		Int("fetchers", len(container.Fetchers)).
		Bool("ledger_loaded", container.LedgerStore.Current() != nil).
		Bool("backups", container.BackupService != nil).
		Msg("Services initialized")

	return nil
}
