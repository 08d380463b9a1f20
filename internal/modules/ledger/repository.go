package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
)

const (
	// DefaultPageSize matches the dashboard's recent-activity view
	DefaultPageSize = 10
	// MaxPageSize caps a single listing request
	MaxPageSize = 100
)

// transactionColumns is the list of columns for the transactions table
const transactionColumns = `id, owner, symbol, side, shares, price, total, created_at`

// Repository handles transactions table operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new ledger repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "ledger").Logger(),
	}
}

// NewTransaction builds a ledger row for an executed trade.
// Total is always shares * price, computed here so callers cannot drift.
func NewTransaction(owner, symbol string, side domain.TradeSide, shares int64, price decimal.Decimal) *Transaction {
	return &Transaction{
		ID:     uuid.New().String(),
		Owner:  owner,
		Symbol: domain.NormalizeSymbol(symbol),
		Side:   side,
		Shares: shares,
		Price:  price,
		Total:  price.Mul(decimal.NewFromInt(shares)),
	}
}

// InsertTx appends a transaction inside an existing database transaction,
// so the ledger row and the holding mutation commit or roll back together.
func (r *Repository) InsertTx(tx *sql.Tx, t *Transaction) error {
	query := `
		INSERT INTO transactions (id, owner, symbol, side, shares, price, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))`

	_, err := tx.Exec(query, t.ID, t.Owner, t.Symbol, string(t.Side), t.Shares,
		t.Price.String(), t.Total.String())
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// GetByID returns a single transaction scoped to its owner, nil when absent
func (r *Repository) GetByID(ctx context.Context, owner, id string) (*Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE owner = ? AND id = ?"

	rows, err := r.db.QueryContext(ctx, query, owner, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	t, err := scanTransaction(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	return &t, nil
}

// List returns a page of an owner's transactions, newest first.
// symbol is optional; beforeID is an exclusive cursor from a previous page.
func (r *Repository) List(ctx context.Context, owner, symbol string, limit int, beforeID string) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	query := "SELECT " + transactionColumns + " FROM transactions WHERE owner = ?"
	args := []interface{}{owner}

	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, domain.NormalizeSymbol(symbol))
	}

	if beforeID != "" {
		// Anchor the cursor on the referenced row's insertion position.
		// rowid is monotonic on this append-only table, unlike created_at
		// which has one-second resolution.
		query += " AND rowid < (SELECT rowid FROM transactions WHERE id = ?)"
		args = append(args, beforeID)
	}

	// Fetch one extra row to detect whether another page exists
	query += " ORDER BY rowid DESC LIMIT ?"
	args = append(args, limit+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	page := &Page{}
	if len(transactions) > limit {
		transactions = transactions[:limit]
		page.NextCursor = transactions[limit-1].ID
	}
	page.Transactions = transactions

	return page, nil
}

// CountBySymbol returns the number of ledger rows for (owner, symbol)
func (r *Repository) CountBySymbol(ctx context.Context, owner, symbol string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE owner = ? AND symbol = ?",
		owner, domain.NormalizeSymbol(symbol)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// ActivitySummary aggregates an owner's trading activity
type ActivitySummary struct {
	Transactions int64 `json:"transactions"`
	Buys         int64 `json:"buys"`
	Sells        int64 `json:"sells"`
	SharesBought int64 `json:"shares_bought"`
	SharesSold   int64 `json:"shares_sold"`
}

// Summarize aggregates the owner's full transaction history
func (r *Repository) Summarize(ctx context.Context, owner string) (*ActivitySummary, error) {
	query := `SELECT side, COUNT(*), COALESCE(SUM(shares), 0)
		FROM transactions WHERE owner = ? GROUP BY side`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	defer rows.Close()

	summary := &ActivitySummary{}
	for rows.Next() {
		var side string
		var count, shares int64
		if err := rows.Scan(&side, &count, &shares); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}

		switch domain.TradeSide(side) {
		case domain.TradeSideBuy:
			summary.Buys = count
			summary.SharesBought = shares
		case domain.TradeSideSell:
			summary.Sells = count
			summary.SharesSold = shares
		}
		summary.Transactions += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}

	return summary, nil
}

// ReplayResult is a position recomputed from the full transaction log.
type ReplayResult struct {
	Shares  int64
	AvgCost decimal.Decimal
}

// RebuildHolding replays every transaction for (owner, symbol) in insertion
// order and recomputes the position. The nightly audit compares this against
// the stored holding to catch ledger/position drift. Replay must follow rowid:
// created_at only resolves to the second, so trades committed within the same
// second would otherwise replay in arbitrary order.
func (r *Repository) RebuildHolding(ctx context.Context, owner, symbol string) (*ReplayResult, error) {
	query := `SELECT side, shares, price FROM transactions
		WHERE owner = ? AND symbol = ?
		ORDER BY rowid ASC`

	rows, err := r.db.QueryContext(ctx, query, owner, domain.NormalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for replay: %w", err)
	}
	defer rows.Close()

	result := &ReplayResult{AvgCost: decimal.Zero}

	for rows.Next() {
		var side string
		var shares int64
		var priceStr string
		if err := rows.Scan(&side, &shares, &priceStr); err != nil {
			return nil, fmt.Errorf("failed to scan transaction for replay: %w", err)
		}

		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q in ledger: %w", priceStr, err)
		}

		switch domain.TradeSide(side) {
		case domain.TradeSideBuy:
			newShares := result.Shares + shares
			oldBasis := result.AvgCost.Mul(decimal.NewFromInt(result.Shares))
			addBasis := price.Mul(decimal.NewFromInt(shares))
			result.AvgCost = oldBasis.Add(addBasis).DivRound(decimal.NewFromInt(newShares), 8)
			result.Shares = newShares

		case domain.TradeSideSell:
			result.Shares -= shares
			if result.Shares < 0 {
				return nil, fmt.Errorf("ledger replay went negative for %s/%s", owner, symbol)
			}
			if result.Shares == 0 {
				result.AvgCost = decimal.Zero
			}

		default:
			return nil, fmt.Errorf("unknown trade side %q in ledger", side)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions for replay: %w", err)
	}

	return result, nil
}

// scanTransaction scans a transaction row
func scanTransaction(rows *sql.Rows) (Transaction, error) {
	var t Transaction
	var side, price, total, createdAt string

	if err := rows.Scan(&t.ID, &t.Owner, &t.Symbol, &side, &t.Shares, &price, &total, &createdAt); err != nil {
		return Transaction{}, err
	}

	t.Side = domain.TradeSide(side)

	p, err := decimal.NewFromString(price)
	if err != nil {
		return Transaction{}, fmt.Errorf("invalid price %q: %w", price, err)
	}
	t.Price = p

	tot, err := decimal.NewFromString(total)
	if err != nil {
		return Transaction{}, fmt.Errorf("invalid total %q: %w", total, err)
	}
	t.Total = tot

	if parsed, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		t.CreatedAt = parsed
	}

	return t, nil
}
