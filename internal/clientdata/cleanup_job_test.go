package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), nil, zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(tableDiscoveryAttempts, "OLD", DiscoveryAttempt{Symbol: "OLD"}, -time.Hour))
	require.NoError(t, repo.Store(tableDiscoveryAttempts, "NEW", DiscoveryAttempt{Symbol: "NEW"}, time.Hour))

	clock := newClock()
	cache := NewTTLCache[string, float64](time.Minute).WithClock(clock.Now)
	cache.Set("AAPL|2024-01-02", 185)
	clock.Advance(time.Hour)

	job := NewCleanupJob(repo, func() []Sweeper { return []Sweeper{cache} }, zerolog.Nop())
	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM discovery_attempts").Scan(&count))
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, cache.Len())
}

func TestCleanupJobRun_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), nil, zerolog.Nop())
	assert.NoError(t, job.Run())
}
