// Package di wires the application's dependencies.
package di

import (
	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/modules/ledger"
	ledgerhandlers "github.com/aristath/folio/internal/modules/ledger/handlers"
	"github.com/aristath/folio/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/folio/internal/modules/portfolio/handlers"
	"github.com/aristath/folio/internal/modules/prices"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/scheduler"
)

// Container holds all dependencies for the application.
//
// Databases:
//   - history.db: daily price bars and tracked securities
//   - client_data.db: TTL cache rows and discovery attempts
type Container struct {
	// Databases
	HistoryDB    *database.DB
	ClientDataDB *database.DB

	// Repositories
	PriceStore     *prices.HistoryDB
	ClientDataRepo *clientdata.Repository

	// Price sources
	Fetchers  []prices.Fetcher
	Discovery *prices.Discovery // nil when discovery is disabled

	// Services
	LedgerStore      *ledger.Store
	PortfolioService *portfolio.Service
	BackupService    *reliability.BackupService // nil when backups are not configured

	// Handlers
	LedgerHandler    *ledgerhandlers.Handler
	PortfolioHandler *portfoliohandlers.Handler

	Scheduler *scheduler.Scheduler
}

// Databases returns every open database, for health, stats and maintenance.
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.HistoryDB, c.ClientDataDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close closes every open database.
func (c *Container) Close() {
	for _, db := range c.Databases() {
		db.Close()
	}
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	Cleanup       *clientdata.CleanupJob
	PriceRefresh  *prices.RefreshJob
	WALCheckpoint *scheduler.CheckWALCheckpointsJob
	LedgerReload  *ledger.ReloadJob      // nil without a ledger file
	Backup        *reliability.BackupJob // nil when backups are not configured
	Maintenance   *reliability.WeeklyMaintenanceJob
}
