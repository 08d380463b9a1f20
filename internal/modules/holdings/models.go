// Package holdings manages per-owner positions with a weighted-average cost basis.
package holdings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is an owner's position in a single security.
// Shares is always positive; a position that reaches zero shares is deleted.
// Version increments on every mutation and guards optimistic commits.
type Holding struct {
	Owner     string          `json:"owner"`
	Symbol    string          `json:"symbol"`
	Shares    int64           `json:"shares"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
	Version   int64           `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CostBasis returns shares * average cost
func (h *Holding) CostBasis() decimal.Decimal {
	return h.AvgCost.Mul(decimal.NewFromInt(h.Shares))
}
