package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/analytics"
	testutil "github.com/aristath/folio/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPortfolioService struct {
	mock.Mock
}

func (m *mockPortfolioService) CurrentHoldings() (domain.HoldingsSnapshot, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.HoldingsSnapshot), args.Error(1)
}

func (m *mockPortfolioService) HoldingsAt(date time.Time) (domain.HoldingsSnapshot, error) {
	args := m.Called(date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.HoldingsSnapshot), args.Error(1)
}

func (m *mockPortfolioService) CostBasis(date time.Time) (map[string]domain.PositionCost, error) {
	args := m.Called(date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.PositionCost), args.Error(1)
}

func (m *mockPortfolioService) ValuationSeries(ctx context.Context, start, end time.Time) (domain.Series, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(domain.Series), args.Error(1)
}

func (m *mockPortfolioService) Analytics(ctx context.Context, start, end time.Time, benchmark string, rf float64) (analytics.Report, error) {
	args := m.Called(ctx, start, end, benchmark, rf)
	return args.Get(0).(analytics.Report), args.Error(1)
}

func setupRouter(service PortfolioService) *chi.Mux {
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		NewHandler(service, zerolog.Nop()).RegisterRoutes(r)
	})
	return router
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has a data object")
	assert.Contains(t, body, "metadata")
	return data
}

func TestHandleGetHoldings(t *testing.T) {
	svc := new(mockPortfolioService)
	svc.On("CurrentHoldings").Return(domain.HoldingsSnapshot{"AAPL": 6, "MSFT": 5}, nil)

	rec := get(t, setupRouter(svc), "/api/holdings")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, 2.0, data["positions"])
	holdings := data["holdings"].(map[string]interface{})
	assert.Equal(t, 6.0, holdings["AAPL"])
	svc.AssertExpectations(t)
}

func TestHandleGetHoldings_NoLedger(t *testing.T) {
	svc := new(mockPortfolioService)
	svc.On("CurrentHoldings").Return(nil, domain.ErrNoLedger)

	rec := get(t, setupRouter(svc), "/api/holdings")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleGetHoldingsAt(t *testing.T) {
	svc := new(mockPortfolioService)
	svc.On("HoldingsAt", testutil.Day("2024-01-02")).Return(domain.HoldingsSnapshot{"AAPL": 10}, nil)

	rec := get(t, setupRouter(svc), "/api/holdings/2024-01-02")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "2024-01-02", data["date"])
	svc.AssertExpectations(t)
}

func TestHandleGetHoldingsAt_BadDate(t *testing.T) {
	svc := new(mockPortfolioService)

	rec := get(t, setupRouter(svc), "/api/holdings/yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "HoldingsAt", mock.Anything)
}

func TestHandleGetCostBasis(t *testing.T) {
	svc := new(mockPortfolioService)
	svc.On("CostBasis", testutil.Day("2024-01-31")).Return(map[string]domain.PositionCost{
		"AAPL": {Symbol: "AAPL", Quantity: 6, AverageCost: 185, CostBasis: 1110},
		"MSFT": {Symbol: "MSFT", Quantity: 5, AverageCost: 370, CostBasis: 1850},
	}, nil)

	rec := get(t, setupRouter(svc), "/api/cost-basis?date=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, 2960.0, data["total_cost"])
	svc.AssertExpectations(t)
}

func TestHandleGetValuation(t *testing.T) {
	svc := new(mockPortfolioService)
	series := domain.Series{
		Start:       testutil.Day("2024-01-02"),
		End:         testutil.Day("2024-01-03"),
		Granularity: domain.GranularityDaily,
		Points: []domain.ValuationPoint{
			{Date: testutil.Day("2024-01-02"), TotalValue: 1855},
			{Date: testutil.Day("2024-01-03"), TotalValue: 3720},
		},
	}
	svc.On("ValuationSeries", mock.Anything, testutil.Day("2024-01-02"), testutil.Day("2024-01-03")).Return(series, nil)

	rec := get(t, setupRouter(svc), "/api/valuation?start=2024-01-02&end=2024-01-03")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "daily", data["granularity"])
	assert.Len(t, data["points"], 2)
	svc.AssertExpectations(t)
}

func TestHandleGetValuation_DefaultRange(t *testing.T) {
	svc := new(mockPortfolioService)
	svc.On("ValuationSeries", mock.Anything, time.Time{}, time.Time{}).Return(domain.Series{}, nil)

	rec := get(t, setupRouter(svc), "/api/valuation")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandleGetValuation_InvalidRange(t *testing.T) {
	svc := new(mockPortfolioService)
	router := setupRouter(svc)

	for _, path := range []string{
		"/api/valuation?start=2024-13-01",
		"/api/valuation?end=soon",
		"/api/valuation?start=2024-02-01&end=2024-01-01",
	} {
		rec := get(t, router, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	svc.AssertNotCalled(t, "ValuationSeries", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleGetValuation_Cancelled(t *testing.T) {
	svc := new(mockPortfolioService)
	svc.On("ValuationSeries", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Series{}, fmt.Errorf("failed to resolve prices: %w", context.Canceled))

	rec := get(t, setupRouter(svc), "/api/valuation")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleGetAnalytics(t *testing.T) {
	svc := new(mockPortfolioService)
	report := analytics.Report{Points: 64, TotalReturn: 0.05, Benchmark: "SPY"}
	svc.On("Analytics", mock.Anything, testutil.Day("2024-01-02"), testutil.Day("2024-03-29"), "SPY", 0.03).Return(report, nil)

	rec := get(t, setupRouter(svc), "/api/analytics?start=2024-01-02&end=2024-03-29&benchmark=SPY&rf=0.03")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "SPY", data["benchmark"])
	assert.Equal(t, 0.05, data["total_return"])
	svc.AssertExpectations(t)
}

func TestHandleGetAnalytics_DefaultsRiskFreeRate(t *testing.T) {
	svc := new(mockPortfolioService)
	svc.On("Analytics", mock.Anything, time.Time{}, time.Time{}, "", -1.0).Return(analytics.Report{}, nil)

	rec := get(t, setupRouter(svc), "/api/analytics")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandleGetAnalytics_InvalidRiskFreeRate(t *testing.T) {
	svc := new(mockPortfolioService)
	router := setupRouter(svc)

	for _, rf := range []string{"abc", "-0.01"} {
		rec := get(t, router, "/api/analytics?rf="+rf)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rf)
	}
}

func TestHandleGetAnalytics_DownstreamFailure(t *testing.T) {
	svc := new(mockPortfolioService)
	svc.On("Analytics", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(analytics.Report{}, &domain.DownstreamFetchError{Source: "yahoo", Symbol: "SPY", Err: fmt.Errorf("timeout")})

	rec := get(t, setupRouter(svc), "/api/analytics")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleGetAnalytics_UnencodableReport(t *testing.T) {
	svc := new(mockPortfolioService)
	svc.On("Analytics", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(analytics.Report{TotalReturn: math.NaN()}, nil)

	rec := get(t, setupRouter(svc), "/api/analytics")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "failed to encode response", body["error"])
}
