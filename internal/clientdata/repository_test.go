package clientdata

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// testSchema mirrors internal/database/schemas/client_data_schema.sql
const testSchema = `
CREATE TABLE discovery_attempts (symbol TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE INDEX idx_discovery_attempts_expires ON discovery_attempts(expires_at);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func TestStoreAndGetIfFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	attempt := DiscoveryAttempt{Symbol: "AAPL", Source: "yahoo", Success: true, Bars: 250}

	require.NoError(t, repo.Store(tableDiscoveryAttempts, "AAPL", attempt, time.Hour))

	var got DiscoveryAttempt
	found, err := repo.GetIfFresh(tableDiscoveryAttempts, "AAPL", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "yahoo", got.Source)
	assert.Equal(t, 250, got.Bars)
	assert.True(t, got.Success)
}

func TestGetIfFresh_Missing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	var got DiscoveryAttempt
	found, err := NewRepository(db).GetIfFresh(tableDiscoveryAttempts, "NOPE", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetIfFresh_ExpiredButGetReturnsStale(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(tableDiscoveryAttempts, "AAPL", DiscoveryAttempt{Symbol: "AAPL"}, -time.Hour))

	var got DiscoveryAttempt
	found, err := repo.GetIfFresh(tableDiscoveryAttempts, "AAPL", &got)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.Get(tableDiscoveryAttempts, "AAPL", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "AAPL", got.Symbol)
}

func TestInvalidTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	assert.Error(t, repo.Store("users; DROP TABLE x", "k", 1, time.Hour))
	_, err := repo.Get("bogus", "k", new(int))
	assert.Error(t, err)
	_, err = repo.DeleteExpired("bogus")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(tableDiscoveryAttempts, "AAPL", DiscoveryAttempt{Symbol: "AAPL"}, time.Hour))
	require.NoError(t, repo.Delete(tableDiscoveryAttempts, "AAPL"))

	found, err := repo.Get(tableDiscoveryAttempts, "AAPL", &DiscoveryAttempt{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(tableDiscoveryAttempts, "OLD", DiscoveryAttempt{Symbol: "OLD"}, -time.Hour))
	require.NoError(t, repo.Store(tableDiscoveryAttempts, "NEW", DiscoveryAttempt{Symbol: "NEW"}, time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[tableDiscoveryAttempts])

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM discovery_attempts").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRecordDiscovery_FailureExpiresSooner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	repo := NewRepository(db)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.RecordDiscovery(DiscoveryAttempt{Symbol: "BAD", Source: "yahoo", Error: "404"}))
	require.NoError(t, repo.RecordDiscovery(DiscoveryAttempt{Symbol: "AAPL", Source: "yahoo", Success: true, Bars: 10}))

	var badExpires, goodExpires int64
	require.NoError(t, db.QueryRow("SELECT expires_at FROM discovery_attempts WHERE symbol = 'BAD'").Scan(&badExpires))
	require.NoError(t, db.QueryRow("SELECT expires_at FROM discovery_attempts WHERE symbol = 'AAPL'").Scan(&goodExpires))
	assert.Equal(t, now.Add(TTLDiscoveryFailure).Unix(), badExpires)
	assert.Equal(t, now.Add(TTLDiscoverySuccess).Unix(), goodExpires)

	attempt, err := repo.RecentDiscovery("BAD")
	require.NoError(t, err)
	require.NotNil(t, attempt)
	assert.False(t, attempt.Success)
	assert.Equal(t, "404", attempt.Error)
	assert.True(t, attempt.AttemptedAt.Equal(now))

	repo.now = func() time.Time { return now.Add(TTLDiscoveryFailure + time.Minute) }
	attempt, err = repo.RecentDiscovery("BAD")
	require.NoError(t, err)
	assert.Nil(t, attempt)
}
