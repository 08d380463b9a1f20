package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/ledger"
)

func TestGetTransactionByID(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	rec := doJSON(t, router, http.MethodPost, "/api/trades/execute",
		executeTradeRequest{Symbol: "AAPL", Side: "buy", Shares: 10})
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Transaction struct {
			ID string `json:"id"`
		} `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotEmpty(t, result.Transaction.ID)

	rec = doJSON(t, router, http.MethodGet, "/api/trades/"+result.Transaction.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tx struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
		Side   string `json:"side"`
		Shares int64  `json:"shares"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, result.Transaction.ID, tx.ID)
	assert.Equal(t, "AAPL", tx.Symbol)
	assert.Equal(t, "BUY", tx.Side)
	assert.Equal(t, int64(10), tx.Shares)
}

func TestGetTransactionNotFound(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	rec := doJSON(t, router, http.MethodGet, "/api/trades/no-such-id", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestGetTransactionScopedToOwner(t *testing.T) {
	router, db := setupRouter(t, "user-1")

	// A transaction belonging to another owner is invisible to user-1
	_, err := db.Exec(
		"INSERT INTO transactions (id, owner, symbol, side, shares, price, total) VALUES ('tx-other', 'user-2', 'AAPL', 'BUY', 1, '100', '100')")
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/trades/tx-other", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestGetTradeSummary(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	trades := []executeTradeRequest{
		{Symbol: "AAPL", Side: "buy", Shares: 10},
		{Symbol: "AAPL", Side: "buy", Shares: 5},
		{Symbol: "AAPL", Side: "sell", Shares: 4},
		{Symbol: "JPM", Side: "buy", Shares: 2},
	}
	for _, trade := range trades {
		rec := doJSON(t, router, http.MethodPost, "/api/trades/execute", trade)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, router, http.MethodGet, "/api/trades/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary ledger.ActivitySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(4), summary.Transactions)
	assert.Equal(t, int64(3), summary.Buys)
	assert.Equal(t, int64(1), summary.Sells)
	assert.Equal(t, int64(17), summary.SharesBought)
	assert.Equal(t, int64(4), summary.SharesSold)
}

func TestGetTradeSummaryEmpty(t *testing.T) {
	router, _ := setupRouter(t, "user-1")

	rec := doJSON(t, router, http.MethodGet, "/api/trades/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary ledger.ActivitySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Zero(t, summary.Transactions)
}
