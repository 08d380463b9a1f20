// Package domain contains the shared domain types for trade execution.
// It is pure: no database, HTTP, or logging dependencies.
package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TradeSide represents the direction of a trade
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// TradeSideFromString parses a trade side, accepting any casing
func TradeSideFromString(s string) (TradeSide, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return TradeSideBuy, nil
	case "SELL":
		return TradeSideSell, nil
	default:
		return "", fmt.Errorf("invalid trade side: %q", s)
	}
}

// NormalizeSymbol canonicalizes a security symbol for storage and lookup
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// PriceSource supplies the reference execution price for a symbol.
// Implementations must return ErrUnknownSymbol when the symbol does not
// resolve and ErrPriceSourceUnavailable for transient failures.
type PriceSource interface {
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}
