package ledger

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ReloadJob re-imports the ledger CSV when the file changes and publishes it to the store.
// A file that fails to parse leaves the current ledger in place.
type ReloadJob struct {
	store   *Store
	path    string
	modTime time.Time
	size    int64
	log     zerolog.Logger
}

// NewReloadJob creates a reload job for path.
func NewReloadJob(store *Store, path string, log zerolog.Logger) *ReloadJob {
	return &ReloadJob{
		store: store,
		path:  path,
		log:   log.With().Str("job", "ledger_reload").Logger(),
	}
}

// Run loads the file if it changed since the last successful load.
func (j *ReloadJob) Run() error {
	info, err := os.Stat(j.path)
	if err != nil {
		return fmt.Errorf("failed to stat ledger file: %w", err)
	}
	if info.ModTime().Equal(j.modTime) && info.Size() == j.size && j.store.Current() != nil {
		return nil
	}

	next, err := LoadFile(j.path)
	if err != nil {
		j.log.Error().Err(err).Str("path", j.path).Msg("Ledger reload failed, keeping current ledger")
		return err
	}

	if _, err := j.store.Replace(next); err != nil {
		return fmt.Errorf("failed to publish ledger: %w", err)
	}
	j.modTime = info.ModTime()
	j.size = info.Size()
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *ReloadJob) Name() string {
	return "ledger_reload"
}
