package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holdings", func(r chi.Router) {
		r.Get("/", h.HandleGetHoldings)
		r.Get("/{date}", h.HandleGetHoldingsAt)
	})
	r.Get("/cost-basis", h.HandleGetCostBasis)
	r.Get("/valuation", h.HandleGetValuation)
	r.Get("/analytics", h.HandleGetAnalytics)
}
