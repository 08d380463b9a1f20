// Package handlers provides HTTP handlers for trade execution and the
// portfolio read surface.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/holdings"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/ledger"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/trading"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/universe"
)

// TradingHandlers contains HTTP handlers for the trading API
type TradingHandlers struct {
	processor    *trading.Processor
	holdingsRepo *holdings.Repository
	ledgerRepo   *ledger.Repository
	securityRepo *universe.SecurityRepository
	log          zerolog.Logger
}

// NewTradingHandlers creates a new trading handlers instance
func NewTradingHandlers(
	processor *trading.Processor,
	holdingsRepo *holdings.Repository,
	ledgerRepo *ledger.Repository,
	securityRepo *universe.SecurityRepository,
	log zerolog.Logger,
) *TradingHandlers {
	return &TradingHandlers{
		processor:    processor,
		holdingsRepo: holdingsRepo,
		ledgerRepo:   ledgerRepo,
		securityRepo: securityRepo,
		log:          log.With().Str("handler", "trading").Logger(),
	}
}

// executeTradeRequest is the POST /api/trades/execute body
type executeTradeRequest struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Shares int64  `json:"shares"`
}

// HandleExecuteTrade handles POST /api/trades/execute
func (h *TradingHandlers) HandleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	owner, ok := domain.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing owner identity")
		return
	}

	var body executeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	side, err := domain.TradeSideFromString(body.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.processor.Execute(r.Context(), trading.TradeRequest{
		Owner:  owner,
		Symbol: body.Symbol,
		Side:   side,
		Shares: body.Shares,
	})
	if err != nil {
		h.writeTradeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGetHoldings handles GET /api/portfolio/holdings
func (h *TradingHandlers) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	owner, ok := domain.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing owner identity")
		return
	}

	list, err := h.holdingsRepo.GetAll(r.Context(), owner)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get holdings")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to load holdings")
		return
	}

	if list == nil {
		list = []holdings.Holding{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"holdings": list})
}

// HandleGetHolding handles GET /api/portfolio/holdings/{symbol}
func (h *TradingHandlers) HandleGetHolding(w http.ResponseWriter, r *http.Request) {
	owner, ok := domain.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing owner identity")
		return
	}

	symbol := chi.URLParam(r, "symbol")
	holding, err := h.holdingsRepo.GetBySymbol(r.Context(), owner, symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get holding")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to load holding")
		return
	}

	if holding == nil {
		writeError(w, http.StatusNotFound, "not_found", "no position in "+domain.NormalizeSymbol(symbol))
		return
	}

	writeJSON(w, http.StatusOK, holding)
}

// HandleGetTrades handles GET /api/trades?symbol=&limit=&before=
func (h *TradingHandlers) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	owner, ok := domain.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing owner identity")
		return
	}

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	page, err := h.ledgerRepo.List(r.Context(), owner,
		r.URL.Query().Get("symbol"), limit, r.URL.Query().Get("before"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to load transactions")
		return
	}

	if page.Transactions == nil {
		page.Transactions = []ledger.Transaction{}
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleGetTransaction handles GET /api/trades/{id}
func (h *TradingHandlers) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := domain.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing owner identity")
		return
	}

	id := chi.URLParam(r, "id")
	transaction, err := h.ledgerRepo.GetByID(r.Context(), owner, id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to get transaction")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to load transaction")
		return
	}

	if transaction == nil {
		writeError(w, http.StatusNotFound, "not_found", "transaction not found")
		return
	}

	writeJSON(w, http.StatusOK, transaction)
}

// HandleGetSummary handles GET /api/trades/summary
func (h *TradingHandlers) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := domain.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing owner identity")
		return
	}

	summary, err := h.ledgerRepo.Summarize(r.Context(), owner)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarize transactions")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to load summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// HandleGetSecurities handles GET /api/securities
func (h *TradingHandlers) HandleGetSecurities(w http.ResponseWriter, r *http.Request) {
	securities, err := h.securityRepo.GetAllActive()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get securities")
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "failed to load securities")
		return
	}

	if securities == nil {
		securities = []universe.Security{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"securities": securities})
}

// writeTradeError maps processor errors to distinct response codes
func (h *TradingHandlers) writeTradeError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientSharesError

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing owner identity")
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrUnknownSymbol):
		writeError(w, http.StatusNotFound, "unknown_symbol", "symbol not found")
	case errors.As(err, &insufficient):
		writeError(w, http.StatusConflict, "insufficient_shares", insufficient.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "concurrency_conflict", "concurrent modification, retry the trade")
	case errors.Is(err, domain.ErrPriceSourceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "price_source_unavailable", "price source unavailable, retry later")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "storage unavailable, retry later")
	default:
		h.log.Error().Err(err).Msg("Trade execution failed")
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
