package testing

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockTracker is a mock symbol tracker for testing
type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) EnsureTracked(ctx context.Context, symbol string) (bool, error) {
	args := m.Called(ctx, symbol)
	return args.Bool(0), args.Error(1)
}

// MockFetcher is a mock external price source for testing
type MockFetcher struct {
	mock.Mock
	SourceName string
}

func (m *MockFetcher) Name() string {
	if m.SourceName == "" {
		return "mock"
	}
	return m.SourceName
}

func (m *MockFetcher) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceRecord, error) {
	args := m.Called(ctx, symbol, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PriceRecord), args.Error(1)
}

// MockPriceWriter is a mock price store writer for testing
type MockPriceWriter struct {
	mock.Mock
}

func (m *MockPriceWriter) TrackSecurity(ctx context.Context, symbol, source string) (int64, error) {
	args := m.Called(ctx, symbol, source)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPriceWriter) SyncPrices(ctx context.Context, symbol string, bars []domain.PriceRecord) (int, error) {
	args := m.Called(ctx, symbol, bars)
	return args.Int(0), args.Error(1)
}

// MemoryDiscoveryLog keeps discovery attempts in memory.
type MemoryDiscoveryLog struct {
	mu       sync.Mutex
	attempts map[string]clientdata.DiscoveryAttempt
}

// NewMemoryDiscoveryLog creates an empty in-memory discovery log
func NewMemoryDiscoveryLog() *MemoryDiscoveryLog {
	return &MemoryDiscoveryLog{attempts: make(map[string]clientdata.DiscoveryAttempt)}
}

func (l *MemoryDiscoveryLog) RecordDiscovery(attempt clientdata.DiscoveryAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[attempt.Symbol] = attempt
	return nil
}

func (l *MemoryDiscoveryLog) RecentDiscovery(symbol string) (*clientdata.DiscoveryAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	attempt, ok := l.attempts[symbol]
	if !ok {
		return nil, nil
	}
	return &attempt, nil
}
