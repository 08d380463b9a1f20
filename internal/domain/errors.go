package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the trade execution error taxonomy.
// Handlers map these to distinct response codes; nothing in the core
// swallows or downgrades them to a generic failure.
var (
	// ErrInvalidQuantity - requested shares not a positive integer, or above the configured maximum
	ErrInvalidQuantity = errors.New("invalid share quantity")

	// ErrUnknownSymbol - the price source cannot resolve the symbol
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrUnauthenticated - no owner identity present on the request
	ErrUnauthenticated = errors.New("missing owner identity")

	// ErrConcurrencyConflict - optimistic commit detected a concurrent mutation
	ErrConcurrencyConflict = errors.New("concurrent modification detected")

	// ErrStoreUnavailable - transient storage failure
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPriceSourceUnavailable - transient price source failure
	ErrPriceSourceUnavailable = errors.New("price source unavailable")
)

// InsufficientSharesError is returned when a sell exceeds the current holding.
// It carries the shares actually held so callers can surface an actionable message.
type InsufficientSharesError struct {
	Symbol string
	Held   int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares: only %d shares of %s held", e.Held, e.Symbol)
}

// IsInsufficientShares reports whether err is an InsufficientSharesError.
func IsInsufficientShares(err error) bool {
	var target *InsufficientSharesError
	return errors.As(err, &target)
}

// Retryable reports whether the error is transient and safe to retry.
// Validation and reconciliation failures are never retryable.
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrPriceSourceUnavailable)
}
