package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/domain"
	testutil "github.com/aristath/folio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{Timeout: time.Second, Retry: fastRetry(1), HistoryYears: 1}
}

func TestDiscovery_FallsBackToNextSource(t *testing.T) {
	ctx := context.Background()
	bars := testutil.NewPriceSeries("NEWCO", "2024-01-01", "2024-01-05", 10, 1)

	failing := &testutil.MockFetcher{SourceName: "yahoo"}
	failing.On("FetchDaily", mock.Anything, "NEWCO", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))
	working := &testutil.MockFetcher{SourceName: "eodhd"}
	working.On("FetchDaily", mock.Anything, "NEWCO", mock.Anything, mock.Anything).Return(bars, nil)

	writer := new(testutil.MockPriceWriter)
	writer.On("TrackSecurity", mock.Anything, "NEWCO", "eodhd").Return(int64(1), nil)
	writer.On("SyncPrices", mock.Anything, "NEWCO", mock.Anything).Return(len(bars), nil)

	attempts := testutil.NewMemoryDiscoveryLog()
	d := NewDiscovery(writer, []Fetcher{failing, working}, attempts, testDiscoveryConfig(), zerolog.Nop())

	found, err := d.EnsureTracked(ctx, "newco")
	require.NoError(t, err)
	assert.True(t, found)

	// one initial call plus one retry
	failing.AssertNumberOfCalls(t, "FetchDaily", 2)
	writer.AssertExpectations(t)

	recent, err := attempts.RecentDiscovery("NEWCO")
	require.NoError(t, err)
	require.NotNil(t, recent)
	assert.True(t, recent.Success)
	assert.Equal(t, "eodhd", recent.Source)
	assert.Equal(t, 5, recent.Bars)
}

func TestDiscovery_AllSourcesFail(t *testing.T) {
	ctx := context.Background()

	f := &testutil.MockFetcher{SourceName: "yahoo"}
	f.On("FetchDaily", mock.Anything, "GHOST", mock.Anything, mock.Anything).Return(nil, errors.New("not found"))

	writer := new(testutil.MockPriceWriter)
	attempts := testutil.NewMemoryDiscoveryLog()
	d := NewDiscovery(writer, []Fetcher{f}, attempts, testDiscoveryConfig(), zerolog.Nop())

	found, err := d.EnsureTracked(ctx, "GHOST")
	assert.False(t, found)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDownstreamFetch)

	var fetchErr *domain.DownstreamFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "GHOST", fetchErr.Symbol)
	writer.AssertNotCalled(t, "SyncPrices", mock.Anything, mock.Anything, mock.Anything)

	recent, _ := attempts.RecentDiscovery("GHOST")
	require.NotNil(t, recent)
	assert.False(t, recent.Success)
}

func TestDiscovery_SkipsRecentFailure(t *testing.T) {
	f := &testutil.MockFetcher{}
	attempts := testutil.NewMemoryDiscoveryLog()
	require.NoError(t, attempts.RecordDiscovery(clientdata.DiscoveryAttempt{Symbol: "GHOST", Success: false}))

	d := NewDiscovery(new(testutil.MockPriceWriter), []Fetcher{f}, attempts, testDiscoveryConfig(), zerolog.Nop())

	found, err := d.EnsureTracked(context.Background(), "GHOST")
	assert.NoError(t, err)
	assert.False(t, found)
	f.AssertNotCalled(t, "FetchDaily", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDiscovery_RejectsUnusableBars(t *testing.T) {
	f := &testutil.MockFetcher{}
	f.On("FetchDaily", mock.Anything, "BAD", mock.Anything, mock.Anything).
		Return([]domain.PriceRecord{{Date: testutil.Day("2024-01-02"), Close: -1}}, nil)

	writer := new(testutil.MockPriceWriter)
	d := NewDiscovery(writer, []Fetcher{f}, nil, testDiscoveryConfig(), zerolog.Nop())

	found, err := d.EnsureTracked(context.Background(), "BAD")
	assert.False(t, found)
	assert.ErrorIs(t, err, domain.ErrDownstreamFetch)
	writer.AssertNotCalled(t, "TrackSecurity", mock.Anything, mock.Anything, mock.Anything)
}

func TestDiscovery_WriteBackFailure(t *testing.T) {
	f := &testutil.MockFetcher{}
	f.On("FetchDaily", mock.Anything, "NEWCO", mock.Anything, mock.Anything).
		Return(testutil.NewPriceSeries("NEWCO", "2024-01-01", "2024-01-05", 10, 1), nil)

	writer := new(testutil.MockPriceWriter)
	writer.On("TrackSecurity", mock.Anything, "NEWCO", "mock").Return(int64(1), nil)
	writer.On("SyncPrices", mock.Anything, "NEWCO", mock.Anything).Return(0, errors.New("disk full"))

	d := NewDiscovery(writer, []Fetcher{f}, nil, testDiscoveryConfig(), zerolog.Nop())

	found, err := d.EnsureTracked(context.Background(), "NEWCO")
	assert.False(t, found)
	var fetchErr *domain.DownstreamFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "price_store", fetchErr.Source)
}

func TestDiscovery_CallerCancelIsNotRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &testutil.MockFetcher{}
	f.On("FetchDaily", mock.Anything, "SLOW", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	attempts := testutil.NewMemoryDiscoveryLog()
	d := NewDiscovery(new(testutil.MockPriceWriter), []Fetcher{f}, attempts, testDiscoveryConfig(), zerolog.Nop())

	found, err := d.EnsureTracked(ctx, "SLOW")
	assert.False(t, found)
	assert.Error(t, err)

	recent, _ := attempts.RecentDiscovery("SLOW")
	assert.Nil(t, recent)
}
