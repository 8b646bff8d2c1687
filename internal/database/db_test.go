package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *DB, table string) bool {
	t.Helper()
	var name string
	err := db.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestNew_DefaultsAndAccessors(t *testing.T) {
	db := newTestDB(t, "history")

	assert.Equal(t, "history", db.Name())
	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, DriverModernc, db.Driver())
	assert.True(t, filepath.IsAbs(db.Path()))
	assert.NoError(t, db.QuickCheck(context.Background()))
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "x", Driver: "postgres"})
	assert.Error(t, err)
}

func TestMigrate_History(t *testing.T) {
	db := newTestDB(t, "history")

	require.NoError(t, db.Migrate())
	assert.True(t, tableExists(t, db, "securities"))
	assert.True(t, tableExists(t, db, "daily_prices"))

	// idempotent
	require.NoError(t, db.Migrate())
}

func TestMigrate_ClientData(t *testing.T) {
	db := newTestDB(t, "client_data")

	require.NoError(t, db.Migrate())
	assert.True(t, tableExists(t, db, "discovery_attempts"))
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch")
	assert.NoError(t, db.Migrate())
}

func TestBuildConnectionString_Profiles(t *testing.T) {
	ledger := buildConnectionString("/tmp/a.db", ProfileLedger)
	assert.Contains(t, ledger, "synchronous(FULL)")
	assert.Contains(t, ledger, "journal_mode(WAL)")

	cache := buildConnectionString("/tmp/a.db", ProfileCache)
	assert.Contains(t, cache, "synchronous(OFF)")

	standard := buildConnectionString("/tmp/a.db", ProfileStandard)
	assert.Contains(t, standard, "synchronous(NORMAL)")
	assert.Contains(t, standard, "foreign_keys(1)")
}

func TestBuildMattnConnectionString(t *testing.T) {
	connStr := buildMattnConnectionString("/tmp/a.db", ProfileCache)
	assert.Equal(t, "file:/tmp/a.db?_journal_mode=WAL&_synchronous=OFF&_auto_vacuum=FULL&_foreign_keys=1&_busy_timeout=5000&_cache_size=-64000", connStr)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO securities (symbol, tracked_at) VALUES ('AAPL', 1)"); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM securities").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newTestDB(t, "history")

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("unexpected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestWithTransaction_NilDB(t *testing.T) {
	assert.Error(t, WithTransaction(nil, func(tx *sql.Tx) error { return nil }))
}

func TestVacuumInto(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())
	_, err := db.Conn().Exec("INSERT INTO securities (symbol, tracked_at) VALUES ('AAPL', 1)")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snapshots", "history.db")
	require.NoError(t, db.VacuumInto(context.Background(), dest))
	// a second run replaces the previous snapshot
	require.NoError(t, db.VacuumInto(context.Background(), dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	copyDB, err := New(Config{Path: dest, Name: "history"})
	require.NoError(t, err)
	defer copyDB.Close()

	var symbol string
	require.NoError(t, copyDB.Conn().QueryRow("SELECT symbol FROM securities").Scan(&symbol))
	assert.Equal(t, "AAPL", symbol)
}

func TestWALCheckpointAndStats(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())

	assert.NoError(t, db.WALCheckpoint(""))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageSize, int64(0))

	assert.NoError(t, db.HealthCheck(context.Background()))
}
