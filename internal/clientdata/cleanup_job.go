package clientdata

import (
	"github.com/rs/zerolog"
)

// Sweeper is an in-process cache that can drop its expired entries.
type Sweeper interface {
	DeleteExpired() int
}

// CleanupJob removes expired rows from all client data tables and sweeps
// registered in-process caches.
type CleanupJob struct {
	repo     *Repository
	sweepers func() []Sweeper
	log      zerolog.Logger
}

// NewCleanupJob creates a new client data cleanup job.
// sweepers may be nil; it is called on every run so callers can hand out the
// caches of whatever session is current.
func NewCleanupJob(repo *Repository, sweepers func() []Sweeper, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:     repo,
		sweepers: sweepers,
		log:      log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	if j.sweepers != nil {
		swept := 0
		for _, s := range j.sweepers() {
			swept += s.DeleteExpired()
		}
		if swept > 0 {
			j.log.Debug().Int("evicted", swept).Msg("Swept expired in-process cache entries")
		}
	}

	results, err := j.repo.DeleteAllExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired client data")
		return err
	}

	// Log cleanup results
	var totalDeleted int64
	for table, count := range results {
		if count > 0 {
			j.log.Info().
				Str("table", table).
				Int64("deleted", count).
				Msg("Cleaned up expired cache entries")
			totalDeleted += count
		}
	}

	if totalDeleted > 0 {
		j.log.Info().
			Int64("total_deleted", totalDeleted).
			Msg("Client data cleanup completed")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
