package scheduler

import (
	"testing"

	testutil "github.com/aristath/folio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	job := NewCheckWALCheckpointsJob()
	assert.Equal(t, "check_wal_checkpoints", job.Name())
}

func TestCheckWALCheckpointsJob_Run_NoDatabases(t *testing.T) {
	job := NewCheckWALCheckpointsJob(nil, nil)
	job.SetLogger(zerolog.Nop())

	err := job.Run()
	assert.NoError(t, err) // Should handle nil databases gracefully
}

func TestCheckWALCheckpointsJob_Run_WithDatabases(t *testing.T) {
	history, cleanupHistory := testutil.NewTestDB(t, "history")
	defer cleanupHistory()
	clientData, cleanupClientData := testutil.NewTestDB(t, "client_data")
	defer cleanupClientData()

	require.NoError(t, testutil.InsertPrices(history.Conn(), "AAPL",
		testutil.NewPriceSeries("AAPL", "2024-01-01", "2024-03-29", 185, 0.5)))

	job := NewCheckWALCheckpointsJob(history, nil, clientData)
	job.SetLogger(zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestCheckWALCheckpointsJob_Run_ClosedDatabase(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "history")
	cleanup()

	job := NewCheckWALCheckpointsJob(db)
	assert.NoError(t, job.Run(), "a failing database is logged and skipped")
}
