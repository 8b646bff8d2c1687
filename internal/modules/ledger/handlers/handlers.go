// Package handlers provides HTTP handlers for ledger queries.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// LedgerSource returns the active ledger, or nil when none is loaded.
type LedgerSource interface {
	Current() *domain.Ledger
}

// Handler handles ledger HTTP requests
type Handler struct {
	source LedgerSource
	log    zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(source LedgerSource, log zerolog.Logger) *Handler {
	return &Handler{
		source: source,
		log:    log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetEvents handles GET /api/ledger/events
func (h *Handler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	ledger := h.source.Current()
	if ledger == nil {
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrNoLedger.Error())
		return
	}

	q := r.URL.Query()
	start, end := ledger.MinDate(), ledger.MaxDate()
	if s := q.Get("start"); s != "" {
		d, err := domain.ParseDay(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
			return
		}
		start = d
	}
	if s := q.Get("end"); s != "" {
		d, err := domain.ParseDay(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
			return
		}
		end = d
	}

	limit := 0
	if limitStr := q.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	symbol := strings.ToUpper(strings.TrimSpace(q.Get("symbol")))

	events := make([]domain.TransactionEvent, 0)
	for _, e := range ledger.Between(start, end) {
		if symbol != "" && e.Symbol != symbol {
			continue
		}
		events = append(events, e)
		if limit > 0 && len(events) >= limit {
			break
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"events":  events,
			"count":   len(events),
			"version": ledger.Version(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSummary handles GET /api/ledger/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	ledger := h.source.Current()
	if ledger == nil {
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrNoLedger.Error())
		return
	}

	byAction := make(map[domain.Action]int)
	for _, e := range ledger.Events() {
		byAction[e.Action]++
	}

	summary := map[string]interface{}{
		"version":   ledger.Version(),
		"loaded_at": ledger.CreatedAt().Format(time.RFC3339),
		"events":    ledger.Len(),
		"by_action": byAction,
		"symbols":   ledger.Symbols(),
	}
	if !ledger.Empty() {
		summary["first_date"] = ledger.MinDate().Format(domain.DateLayout)
		summary["last_date"] = ledger.MaxDate().Format(domain.DateLayout)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summary,
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
