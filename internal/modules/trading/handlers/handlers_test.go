package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/holdings"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/ledger"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/trading"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/universe"
)

const testSchema = `
CREATE TABLE holdings (
	owner TEXT NOT NULL,
	symbol TEXT NOT NULL,
	shares INTEGER NOT NULL CHECK (shares >= 0),
	avg_cost TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (owner, symbol)
);
CREATE TABLE transactions (
	id TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	shares INTEGER NOT NULL,
	price TEXT NOT NULL,
	total TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE securities (
	symbol TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	sector TEXT,
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// stubPrices serves a fixed price for every known symbol
type stubPrices struct {
	known map[string]string
}

func (s stubPrices) Quote(_ context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := s.known[domain.NormalizeSymbol(symbol)]
	if !ok {
		return decimal.Zero, domain.ErrUnknownSymbol
	}
	return decimal.RequireFromString(price), nil
}

// withOwner injects the authenticated owner, standing in for the
// server's identity middleware
func withOwner(owner string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if owner != "" {
				r = r.WithContext(domain.WithOwner(r.Context(), owner))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setupRouter(t *testing.T, owner string) (chi.Router, *sql.DB) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	log := zerolog.Nop()
	holdingsRepo := holdings.NewRepository(db, log)
	ledgerRepo := ledger.NewRepository(db, log)
	securityRepo := universe.NewSecurityRepository(db, log)
	require.NoError(t, universe.SeedDefaults(securityRepo, log))

	prices := stubPrices{known: map[string]string{"AAPL": "100", "JPM": "200"}}
	processor := trading.NewProcessor(db, holdingsRepo, ledgerRepo, prices, nil, 1_000_000, log)

	h := NewTradingHandlers(processor, holdingsRepo, ledgerRepo, securityRepo, log)

	r := chi.NewRouter()
	r.Use(withOwner(owner))
	r.Route("/api", h.RegisterRoutes)

	return r, db
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestExecuteTradeSuccess(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "AAPL", Side: "buy", Shares: 10})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Transaction struct {
			ID    string `json:"id"`
			Side  string `json:"side"`
			Total string `json:"total"`
		} `json:"transaction"`
		Holding struct {
			Symbol  string `json:"symbol"`
			Shares  int64  `json:"shares"`
			AvgCost string `json:"avg_cost"`
		} `json:"holding"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Transaction.ID)
	assert.Equal(t, "BUY", result.Transaction.Side)
	assert.Equal(t, "1000", result.Transaction.Total)
	assert.Equal(t, "AAPL", result.Holding.Symbol)
	assert.Equal(t, int64(10), result.Holding.Shares)
}

func TestExecuteTradeRequiresOwner(t *testing.T) {
	router, _ := setupRouter(t, "")

	rec := doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "AAPL", Side: "buy", Shares: 1})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", errorCode(t, rec))
}

func TestExecuteTradeInvalidQuantity(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "AAPL", Side: "buy", Shares: 0})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_quantity", errorCode(t, rec))
}

func TestExecuteTradeUnknownSymbol(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "NOPE", Side: "buy", Shares: 1})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_symbol", errorCode(t, rec))
}

func TestExecuteTradeInvalidSide(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "AAPL", Side: "short", Shares: 1})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestExecuteTradeInsufficientShares(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "AAPL", Side: "sell", Shares: 5})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_shares", errorCode(t, rec))

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error.Message, "only 0 shares")
}

func TestGetHoldingLifecycle(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	// No position yet
	rec := doJSON(t, router, http.MethodGet, "/api/portfolio/holdings/AAPL", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Buy, then the position is visible
	rec = doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "AAPL", Side: "buy", Shares: 10})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/portfolio/holdings/AAPL", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var holding struct {
		Shares  int64  `json:"shares"`
		AvgCost string `json:"avg_cost"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &holding))
	assert.Equal(t, int64(10), holding.Shares)
	assert.Equal(t, "100", holding.AvgCost)

	// Sell everything, the position disappears
	rec = doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "AAPL", Side: "sell", Shares: 10})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/portfolio/holdings/AAPL", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHoldingsList(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "AAPL", Side: "buy", Shares: 10})
	doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "JPM", Side: "buy", Shares: 5})

	rec := doJSON(t, router, http.MethodGet, "/api/portfolio/holdings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Holdings []struct {
			Symbol string `json:"symbol"`
		} `json:"holdings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Holdings, 2)
}

func TestGetTradesPaging(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/trades/execute",
			executeTradeRequest{Symbol: "AAPL", Side: "buy", Shares: 1})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/trades?symbol=AAPL&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	type tradesPage struct {
		Transactions []struct {
			ID string `json:"id"`
		} `json:"transactions"`
		NextCursor string `json:"next_cursor"`
	}

	var first tradesPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Len(t, first.Transactions, 2)
	assert.NotEmpty(t, first.NextCursor)

	rec = doJSON(t, router, http.MethodGet, "/api/trades?symbol=AAPL&limit=2&before="+first.NextCursor, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Fresh struct: the final page omits next_cursor entirely, and
	// unmarshalling into the first page's struct would keep the stale value
	var last tradesPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	assert.Len(t, last.Transactions, 1)
	assert.Empty(t, last.NextCursor)
}

func TestGetTradesInvalidLimit(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	rec := doJSON(t, router, http.MethodGet, "/api/trades?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSecurities(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	rec := doJSON(t, router, http.MethodGet, "/api/securities", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Securities []struct {
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
		} `json:"securities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Securities, 8)
}

func TestReadsRequireOwner(t *testing.T) {
	router, _ := setupRouter(t, "")

	for _, path := range []string{"/api/portfolio/holdings", "/api/portfolio/holdings/AAPL", "/api/trades"} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
