// Package ledger maintains the append-only transaction log.
// Rows are never updated or deleted; holdings are derived state that can be
// rebuilt from this log at any time.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
)

// Transaction is one executed trade, immutable once written.
type Transaction struct {
	ID        string           `json:"id"`
	Owner     string           `json:"owner"`
	Symbol    string           `json:"symbol"`
	Side      domain.TradeSide `json:"side"`
	Shares    int64            `json:"shares"`
	Price     decimal.Decimal  `json:"price"`
	Total     decimal.Decimal  `json:"total"`
	CreatedAt time.Time        `json:"created_at"`
}

// Page is one page of a transaction listing, newest first.
// NextCursor is the id to pass as beforeID for the following page; empty
// when there are no more rows.
type Page struct {
	Transactions []Transaction `json:"transactions"`
	NextCursor   string        `json:"next_cursor,omitempty"`
}
