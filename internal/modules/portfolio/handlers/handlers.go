// Package handlers provides HTTP handlers for portfolio queries.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/analytics"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PortfolioService defines the queries the handlers need.
type PortfolioService interface {
	CurrentHoldings() (domain.HoldingsSnapshot, error)
	HoldingsAt(date time.Time) (domain.HoldingsSnapshot, error)
	CostBasis(date time.Time) (map[string]domain.PositionCost, error)
	ValuationSeries(ctx context.Context, start, end time.Time) (domain.Series, error)
	Analytics(ctx context.Context, start, end time.Time, benchmark string, rf float64) (analytics.Report, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service PortfolioService
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service PortfolioService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetHoldings handles GET /api/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.CurrentHoldings()
	if err != nil {
		h.writeServiceError(w, err, "Failed to get holdings")
		return
	}

	h.writeData(w, map[string]interface{}{
		"holdings":  snapshot,
		"positions": len(snapshot),
	})
}

// HandleGetHoldingsAt handles GET /api/holdings/{date}
func (h *Handler) HandleGetHoldingsAt(w http.ResponseWriter, r *http.Request) {
	date, err := domain.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	snapshot, err := h.service.HoldingsAt(date)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get holdings")
		return
	}

	h.writeData(w, map[string]interface{}{
		"date":      date.Format(domain.DateLayout),
		"holdings":  snapshot,
		"positions": len(snapshot),
	})
}

// HandleGetCostBasis handles GET /api/cost-basis
func (h *Handler) HandleGetCostBasis(w http.ResponseWriter, r *http.Request) {
	date := domain.Day(time.Now())
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := domain.ParseDay(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = d
	}

	positions, err := h.service.CostBasis(date)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get cost basis")
		return
	}

	totalCost := 0.0
	for _, p := range positions {
		totalCost += p.CostBasis
	}

	h.writeData(w, map[string]interface{}{
		"date":       date.Format(domain.DateLayout),
		"positions":  positions,
		"total_cost": totalCost,
	})
}

// HandleGetValuation handles GET /api/valuation
func (h *Handler) HandleGetValuation(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	series, err := h.service.ValuationSeries(r.Context(), start, end)
	if err != nil {
		h.writeServiceError(w, err, "Failed to build valuation series")
		return
	}

	h.writeData(w, series)
}

// HandleGetAnalytics handles GET /api/analytics
func (h *Handler) HandleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	rf := -1.0
	if s := r.URL.Query().Get("rf"); s != "" {
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid rf, expected a non-negative annual rate")
			return
		}
		rf = parsed
	}

	report, err := h.service.Analytics(r.Context(), start, end, r.URL.Query().Get("benchmark"), rf)
	if err != nil {
		h.writeServiceError(w, err, "Failed to compute analytics")
		return
	}

	h.writeData(w, report)
}

// parseRange reads optional start and end query parameters. Zero values let
// the service pick its defaults.
func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	var start, end time.Time
	q := r.URL.Query()
	if s := q.Get("start"); s != "" {
		d, err := domain.ParseDay(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
			return start, end, false
		}
		start = d
	}
	if s := q.Get("end"); s != "" {
		d, err := domain.ParseDay(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
			return start, end, false
		}
		end = d
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		h.writeError(w, http.StatusBadRequest, "end date is before start date")
		return start, end, false
	}
	return start, end, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNoLedger):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.log.Warn().Err(err).Msg(msg)
		h.writeError(w, http.StatusServiceUnavailable, "request cancelled")
	case errors.Is(err, domain.ErrDownstreamFetch):
		h.log.Error().Err(err).Msg(msg)
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Error().Err(err).Msg(msg)
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write response")
	}
}
