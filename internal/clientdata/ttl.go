package clientdata

import "time"

// TTL constants for cached data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLQuote - reference prices are allowed to lag slightly; trades use
	// the cached quote within this window to avoid hammering the quote service.
	TTLQuote = time.Minute

	// TTLQuoteStale - ceiling on how old a quote may be when served as a
	// stale fallback after the quote service fails.
	TTLQuoteStale = 24 * time.Hour
)

// TableQuotes is the cache table for quote service responses.
const TableQuotes = "quotes_cache"
