package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trading routes
func (h *TradingHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/trades", func(r chi.Router) {
		r.Get("/", h.HandleGetTrades)            // Transaction history
		r.Post("/execute", h.HandleExecuteTrade) // Execute trade
		r.Get("/summary", h.HandleGetSummary)    // Activity summary, before {id}
		r.Get("/{id}", h.HandleGetTransaction)   // Single transaction
	})

	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/holdings", h.HandleGetHoldings)          // All positions
		r.Get("/holdings/{symbol}", h.HandleGetHolding)  // Single position
	})

	r.Get("/securities", h.HandleGetSecurities) // Reference data
}
