package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	testutil "github.com/aristath/folio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRefreshJob(h *HistoryDB, fetchers ...Fetcher) *RefreshJob {
	cfg := DiscoveryConfig{
		Timeout: 5 * time.Second,
		Retry:   RetryConfig{MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2},
	}
	j := NewRefreshJob(h, fetchers, cfg, zerolog.Nop())
	j.now = func() time.Time { return time.Date(2024, 2, 9, 18, 0, 0, 0, time.UTC) }
	return j
}

func TestRefreshJob_AppendsNewBars(t *testing.T) {
	ctx := context.Background()
	h := newTestHistoryDB(t)
	_, err := h.SyncPrices(ctx, "AAPL", testutil.NewPriceSeries("AAPL", "2024-01-01", "2024-01-31", 180, 1))
	require.NoError(t, err)

	fetcher := &testutil.MockFetcher{SourceName: "yahoo"}
	fetcher.On("FetchDaily", mock.Anything, "AAPL", mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return(testutil.NewPriceSeries("AAPL", "2024-01-26", "2024-02-09", 200, 1), nil).Once()

	require.NoError(t, newTestRefreshJob(h, fetcher).Run())

	latest, ok, err := h.LatestDate(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.Equal(testutil.Day("2024-02-09")), latest)

	fetcher.AssertExpectations(t)
	args := fetcher.Calls[0].Arguments
	assert.True(t, args.Get(2).(time.Time).Equal(testutil.Day("2024-01-26")), "start re-fetches the overlap window")
	assert.True(t, args.Get(3).(time.Time).Equal(testutil.Day("2024-02-09")))
}

func TestRefreshJob_FallsBackToNextSource(t *testing.T) {
	ctx := context.Background()
	h := newTestHistoryDB(t)
	_, err := h.SyncPrices(ctx, "MSFT", testutil.NewPriceSeries("MSFT", "2024-01-01", "2024-01-31", 370, 0))
	require.NoError(t, err)

	primary := &testutil.MockFetcher{SourceName: "yahoo"}
	primary.On("FetchDaily", mock.Anything, "MSFT", mock.Anything, mock.Anything).
		Return(nil, errors.New("rate limited")).Once()
	secondary := &testutil.MockFetcher{SourceName: "eodhd"}
	secondary.On("FetchDaily", mock.Anything, "MSFT", mock.Anything, mock.Anything).
		Return(testutil.NewPriceSeries("MSFT", "2024-02-01", "2024-02-09", 372, 0), nil).Once()

	require.NoError(t, newTestRefreshJob(h, primary, secondary).Run())

	latest, ok, err := h.LatestDate(ctx, "MSFT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.Equal(testutil.Day("2024-02-09")), latest)
	primary.AssertExpectations(t)
	secondary.AssertExpectations(t)
}

func TestRefreshJob_SymbolFailureDoesNotFailRun(t *testing.T) {
	ctx := context.Background()
	h := newTestHistoryDB(t)
	_, err := h.TrackSecurity(ctx, "VWCE", "")
	require.NoError(t, err)

	j := newTestRefreshJob(h)
	require.NoError(t, j.Run())

	err = j.refreshSymbol(ctx, "VWCE", testutil.Day("2024-02-09"))
	assert.ErrorContains(t, err, "no price sources configured")

	_, ok, err := h.LatestDate(ctx, "VWCE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshJob_Name(t *testing.T) {
	assert.Equal(t, "price_refresh", newTestRefreshJob(newTestHistoryDB(t)).Name())
}
