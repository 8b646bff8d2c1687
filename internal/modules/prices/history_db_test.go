package prices

import (
	"context"
	"testing"

	"github.com/aristath/folio/internal/domain"
	testutil "github.com/aristath/folio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistoryDB(t *testing.T) *HistoryDB {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "history")
	t.Cleanup(cleanup)
	return NewHistoryDB(db.Conn(), zerolog.Nop())
}

func TestHistoryDB_SyncAndRange(t *testing.T) {
	ctx := context.Background()
	h := newTestHistoryDB(t)

	n, err := h.SyncPrices(ctx, "aapl", testutil.NewPriceSeries("AAPL", "2024-01-01", "2024-01-31", 180, 1))
	require.NoError(t, err)
	assert.Equal(t, 23, n)
	_, err = h.SyncPrices(ctx, "MSFT", testutil.NewPriceSeries("MSFT", "2024-01-01", "2024-01-31", 370, 0))
	require.NoError(t, err)

	ids, err := h.LookupSymbolIDs(ctx, []string{"AAPL", "MSFT", "GOOG"})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.NotContains(t, ids, "GOOG")

	rows, err := h.PricesInRange(ctx, ids, testutil.Day("2024-01-08"), testutil.Day("2024-01-12"))
	require.NoError(t, err)
	require.Len(t, rows["AAPL"], 5)
	require.Len(t, rows["MSFT"], 5)
	assert.Equal(t, testutil.Day("2024-01-08"), rows["AAPL"][0].Date)
	assert.Equal(t, "AAPL", rows["AAPL"][0].Symbol)
	assert.True(t, rows["AAPL"][0].Date.Before(rows["AAPL"][4].Date))
}

func TestHistoryDB_SyncReplacesExistingBars(t *testing.T) {
	ctx := context.Background()
	h := newTestHistoryDB(t)

	bar := domain.PriceRecord{Date: testutil.Day("2024-01-02"), Close: 100}
	_, err := h.SyncPrices(ctx, "AAPL", []domain.PriceRecord{bar})
	require.NoError(t, err)
	bar.Close = 101
	_, err = h.SyncPrices(ctx, "AAPL", []domain.PriceRecord{bar})
	require.NoError(t, err)

	rec, ok, err := h.PriceOnOrBefore(ctx, "AAPL", testutil.Day("2024-01-02"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 101.0, rec.Close)
}

func TestHistoryDB_PriceOnOrBefore(t *testing.T) {
	ctx := context.Background()
	h := newTestHistoryDB(t)

	_, err := h.SyncPrices(ctx, "AAPL", []domain.PriceRecord{{Date: testutil.Day("2024-01-02"), Close: 185.64}})
	require.NoError(t, err)

	t.Run("exact date", func(t *testing.T) {
		rec, ok, err := h.PriceOnOrBefore(ctx, "AAPL", testutil.Day("2024-01-02"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 185.64, rec.Close)
	})

	t.Run("forward fills", func(t *testing.T) {
		rec, ok, err := h.PriceOnOrBefore(ctx, "AAPL", testutil.Day("2024-01-07"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, testutil.Day("2024-01-02"), rec.Date)
	})

	t.Run("never reads the future", func(t *testing.T) {
		_, ok, err := h.PriceOnOrBefore(ctx, "AAPL", testutil.Day("2024-01-01"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, ok, err := h.PriceOnOrBefore(ctx, "NOPE", testutil.Day("2024-01-02"))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestHistoryDB_ZeroCloseIsData(t *testing.T) {
	ctx := context.Background()
	h := newTestHistoryDB(t)

	_, err := h.SyncPrices(ctx, "DEAD", []domain.PriceRecord{{Date: testutil.Day("2024-01-02"), Close: 0}})
	require.NoError(t, err)

	rec, ok, err := h.PriceOnOrBefore(ctx, "DEAD", testutil.Day("2024-01-03"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.0, rec.Close)
}

func TestHistoryDB_TrackingAndMetadata(t *testing.T) {
	ctx := context.Background()
	h := newTestHistoryDB(t)

	id, err := h.TrackSecurity(ctx, "msft", "yahoo")
	require.NoError(t, err)
	again, err := h.TrackSecurity(ctx, "MSFT", "eodhd")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	hasData, err := h.HasData(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, hasData)

	_, ok, err := h.LatestDate(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.SyncPrices(ctx, "AAPL", testutil.NewPriceSeries("AAPL", "2024-01-01", "2024-01-05", 1, 1))
	require.NoError(t, err)

	latest, ok, err := h.LatestDate(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testutil.Day("2024-01-05"), latest)

	symbols, err := h.TrackedSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	_, err = h.TrackSecurity(ctx, "  ", "")
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
