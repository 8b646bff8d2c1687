package di

import (
	"fmt"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/prices"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/rs/zerolog"
)

type scheduledJob struct {
	spec string
	job  scheduler.Job
}

// RegisterJobs creates the background jobs and schedules them.
// An empty schedule leaves a job unscheduled; it can still be triggered manually.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{}

	instances.Cleanup = clientdata.NewCleanupJob(container.ClientDataRepo, container.PortfolioService.Sweepers, log)
	instances.PriceRefresh = prices.NewRefreshJob(container.PriceStore, container.Fetchers, DiscoveryConfig(cfg), log)

	instances.WALCheckpoint = scheduler.NewCheckWALCheckpointsJob(container.HistoryDB, container.ClientDataDB)
	instances.WALCheckpoint.SetLogger(log)

	if cfg.LedgerCSV != "" {
		instances.LedgerReload = ledger.NewReloadJob(container.LedgerStore, cfg.LedgerCSV, log)
	}
	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
	}
	instances.Maintenance = reliability.NewWeeklyMaintenanceJob(container.Databases(), cfg.DataDir, log)

	schedules := []scheduledJob{
		{cfg.Schedules.Cleanup, instances.Cleanup},
		{cfg.Schedules.PriceRefresh, instances.PriceRefresh},
		{cfg.Schedules.WALCheckpoint, instances.WALCheckpoint},
		{cfg.Schedules.Maintenance, instances.Maintenance},
	}
	if instances.LedgerReload != nil {
		schedules = append(schedules, scheduledJob{cfg.Schedules.LedgerReload, instances.LedgerReload})
	}
	if instances.Backup != nil {
		schedules = append(schedules, scheduledJob{cfg.Schedules.Backup, instances.Backup})
	}

	for _, s := range schedules {
		if s.spec == "" {
			log.Info().Str("job", s.job.Name()).Msg("Job schedule disabled")
			continue
		}
		if err := container.Scheduler.AddJob(s.spec, s.job); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", s.job.Name(), err)
		}
	}

	return instances, nil
}
