package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
		shares INTEGER NOT NULL CHECK (shares > 0),
		price TEXT NOT NULL,
		total TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	require.NoError(t, err)

	return db
}

func insert(t *testing.T, db *sql.DB, repo *Repository, txn *Transaction) {
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.InsertTx(tx, txn))
	require.NoError(t, tx.Commit())
}

// insertAt writes a row with an explicit timestamp for paging tests
func insertAt(t *testing.T, db *sql.DB, txn *Transaction, createdAt string) {
	_, err := db.Exec(`INSERT INTO transactions (id, owner, symbol, side, shares, price, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.Owner, txn.Symbol, string(txn.Side), txn.Shares,
		txn.Price.String(), txn.Total.String(), createdAt)
	require.NoError(t, err)
}

func TestNewTransactionComputesTotal(t *testing.T) {
	txn := NewTransaction("user-1", "aapl", domain.TradeSideBuy, 10, decimal.RequireFromString("185.50"))

	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, "AAPL", txn.Symbol)
	assert.True(t, txn.Total.Equal(decimal.RequireFromString("1855.00")))
}

func TestInsertAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	insert(t, db, repo, NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 10, decimal.NewFromInt(100)))
	insert(t, db, repo, NewTransaction("user-1", "AAPL", domain.TradeSideSell, 4, decimal.NewFromInt(120)))

	page, err := repo.List(ctx, "user-1", "AAPL", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	assert.Empty(t, page.NextCursor)

	// Sides and totals round-trip
	for _, txn := range page.Transactions {
		assert.Equal(t, "user-1", txn.Owner)
		assert.True(t, txn.Total.Equal(txn.Price.Mul(decimal.NewFromInt(txn.Shares))))
	}
}

func TestListScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	insert(t, db, repo, NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 1, decimal.NewFromInt(100)))
	insert(t, db, repo, NewTransaction("user-2", "AAPL", domain.TradeSideBuy, 2, decimal.NewFromInt(100)))

	page, err := repo.List(ctx, "user-1", "", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "user-1", page.Transactions[0].Owner)
}

func TestListNewestFirstWithCursor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	// Five trades across distinct timestamps
	for i := 0; i < 5; i++ {
		txn := NewTransaction("user-1", "AAPL", domain.TradeSideBuy, int64(i+1), decimal.NewFromInt(100))
		insertAt(t, db, txn, fmt.Sprintf("2026-08-0%d 10:00:00", i+1))
	}

	first, err := repo.List(ctx, "user-1", "AAPL", 2, "")
	require.NoError(t, err)
	require.Len(t, first.Transactions, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, int64(5), first.Transactions[0].Shares) // newest first
	assert.Equal(t, int64(4), first.Transactions[1].Shares)

	second, err := repo.List(ctx, "user-1", "AAPL", 2, first.NextCursor)
	require.NoError(t, err)
	require.Len(t, second.Transactions, 2)
	assert.Equal(t, int64(3), second.Transactions[0].Shares)
	assert.Equal(t, int64(2), second.Transactions[1].Shares)

	last, err := repo.List(ctx, "user-1", "AAPL", 2, second.NextCursor)
	require.NoError(t, err)
	require.Len(t, last.Transactions, 1)
	assert.Equal(t, int64(1), last.Transactions[0].Shares)
	assert.Empty(t, last.NextCursor)
}

func TestListSameSecondNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	// Three trades in one second; ids deliberately disagree with execution
	// order, so only insertion order can break the created_at tie
	stamp := "2026-08-01 10:00:00"
	ids := []string{"m-mid", "z-last", "a-first"}
	for i, id := range ids {
		txn := NewTransaction("user-1", "AAPL", domain.TradeSideBuy, int64(i+1), decimal.NewFromInt(100))
		txn.ID = id
		insertAt(t, db, txn, stamp)
	}

	first, err := repo.List(ctx, "user-1", "AAPL", 2, "")
	require.NoError(t, err)
	require.Len(t, first.Transactions, 2)
	assert.Equal(t, int64(3), first.Transactions[0].Shares)
	assert.Equal(t, int64(2), first.Transactions[1].Shares)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.List(ctx, "user-1", "AAPL", 2, first.NextCursor)
	require.NoError(t, err)
	require.Len(t, second.Transactions, 1)
	assert.Equal(t, int64(1), second.Transactions[0].Shares)
	assert.Empty(t, second.NextCursor)
}

func TestListDefaultAndMaxLimits(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		txn := NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 1, decimal.NewFromInt(100))
		insertAt(t, db, txn, fmt.Sprintf("2026-08-01 10:%02d:00", i))
	}

	page, err := repo.List(ctx, "user-1", "", 0, "")
	require.NoError(t, err)
	assert.Len(t, page.Transactions, DefaultPageSize)
	assert.NotEmpty(t, page.NextCursor)

	page, err = repo.List(ctx, "user-1", "", 10_000, "")
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 15) // capped limit still covers all rows
}

func TestCountBySymbol(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	insert(t, db, repo, NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 1, decimal.NewFromInt(100)))
	insert(t, db, repo, NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 2, decimal.NewFromInt(100)))
	insert(t, db, repo, NewTransaction("user-1", "JPM", domain.TradeSideBuy, 3, decimal.NewFromInt(200)))

	count, err := repo.CountBySymbol(ctx, "user-1", "aapl")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRebuildHoldingWeightedAverage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	insertAt(t, db, NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 10, decimal.NewFromInt(100)), "2026-08-01 10:00:00")
	insertAt(t, db, NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 5, decimal.NewFromInt(130)), "2026-08-02 10:00:00")

	result, err := repo.RebuildHolding(ctx, "user-1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(15), result.Shares)
	assert.True(t, result.AvgCost.Equal(decimal.NewFromInt(110)),
		"expected 110, got %s", result.AvgCost)
}

func TestRebuildHoldingSellToZero(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	ctx := context.Background()

	insertAt(t, db, NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 10, decimal.NewFromInt(100)), "2026-08-01 10:00:00")
	insertAt(t, db, NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 5, decimal.NewFromInt(130)), "2026-08-02 10:00:00")
	insertAt(t, db, NewTransaction("user-1", "AAPL", domain.TradeSideSell, 15, decimal.NewFromInt(150)), "2026-08-03 10:00:00")

	result, err := repo.RebuildHolding(ctx, "user-1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Shares)
	assert.True(t, result.AvgCost.IsZero())
}

func TestRebuildHoldingSameSecondInsertionOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	// Buy, full sell, buy, all committed within the same second. The ids are
	// chosen so that sorting by id would replay the sell first and go
	// negative; replay must follow insertion order instead.
	buy1 := NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 10, decimal.NewFromInt(100))
	buy1.ID = "z-opening-buy"
	sell := NewTransaction("user-1", "AAPL", domain.TradeSideSell, 10, decimal.NewFromInt(120))
	sell.ID = "a-full-sell"
	buy2 := NewTransaction("user-1", "AAPL", domain.TradeSideBuy, 5, decimal.NewFromInt(130))
	buy2.ID = "m-reentry-buy"

	stamp := "2026-08-01 10:00:00"
	insertAt(t, db, buy1, stamp)
	insertAt(t, db, sell, stamp)
	insertAt(t, db, buy2, stamp)

	result, err := repo.RebuildHolding(context.Background(), "user-1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Shares)
	assert.True(t, result.AvgCost.Equal(decimal.NewFromInt(130)),
		"expected 130, got %s", result.AvgCost)
}

func TestRebuildHoldingEmptyLedger(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	result, err := repo.RebuildHolding(context.Background(), "user-1", "NOPE")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Shares)
	assert.True(t, result.AvgCost.IsZero())
}

func TestRebuildHoldingDetectsNegative(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	insertAt(t, db, NewTransaction("user-1", "AAPL", domain.TradeSideSell, 5, decimal.NewFromInt(100)), "2026-08-01 10:00:00")

	_, err := repo.RebuildHolding(context.Background(), "user-1", "AAPL")
	assert.Error(t, err)
}
