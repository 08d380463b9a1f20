// Package trading implements trade execution: validation, position
// reconciliation, and the atomic ledger/holding commit.
package trading

import (
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/holdings"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/ledger"
)

// TradeRequest is a validated-on-entry trade order.
// Owner comes from the authenticated request context, never the body.
type TradeRequest struct {
	Owner  string
	Symbol string
	Side   domain.TradeSide
	Shares int64
}

// TradeResult is the outcome of a successful execution.
// Holding is nil when a sell closed the position.
type TradeResult struct {
	Transaction *ledger.Transaction `json:"transaction"`
	Holding     *holdings.Holding   `json:"holding,omitempty"`
}
