// Package quotes provides reference price fetching and caching functionality.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/clientdata"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
)

const (
	requestTimeout = 5 * time.Second
	maxAttempts    = 3
	retryBackoff   = 200 * time.Millisecond
)

// Client fetches reference prices from the quote service.
// It satisfies domain.PriceSource.
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
	cacheTTL  time.Duration
}

// NewClient creates a new quote service client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: requestTimeout},
		log:       log.With().Str("client", "quotes").Logger(),
		cacheRepo: cacheRepo,
		cacheTTL:  clientdata.TTLQuote,
	}
}

// SetCacheTTL overrides the default quote freshness window
func (c *Client) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		c.cacheTTL = ttl
	}
}

// cachedQuote is the structure stored in the cache
type cachedQuote struct {
	Symbol string `msgpack:"symbol"`
	Price  string `msgpack:"price"`
}

// quoteResponse is the quote service wire format
type quoteResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Quote fetches the current reference price for a symbol, cache-first.
// An unknown symbol maps to domain.ErrUnknownSymbol. Transient failures fall
// back to a stale cached price when one exists, otherwise surface as
// domain.ErrPriceSourceUnavailable.
func (c *Client) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return decimal.Zero, domain.ErrUnknownSymbol
	}

	// Check persistent cache for fresh data
	if c.cacheRepo != nil {
		var cached cachedQuote
		found, err := c.cacheRepo.GetIfFresh(clientdata.TableQuotes, symbol, &cached)
		if err == nil && found {
			price, perr := decimal.NewFromString(cached.Price)
			if perr == nil {
				c.log.Debug().
					Str("symbol", symbol).
					Str("price", cached.Price).
					Msg("Cache hit")
				return price, nil
			}
		}
	}

	price, err := c.fetch(ctx, symbol)
	if err == nil {
		if c.cacheRepo != nil {
			cached := cachedQuote{Symbol: symbol, Price: price.String()}
			if cerr := c.cacheRepo.Store(clientdata.TableQuotes, symbol, cached, c.cacheTTL); cerr != nil {
				c.log.Warn().Err(cerr).Str("symbol", symbol).Msg("Failed to cache quote")
			}
		}
		return price, nil
	}

	// Unknown symbols are definitive, never served from stale cache
	if errors.Is(err, domain.ErrUnknownSymbol) {
		return decimal.Zero, err
	}

	// Transient failure - stale data is better than no data
	if stale, ok := c.getStaleFromCache(symbol); ok {
		c.log.Warn().
			Err(err).
			Str("symbol", symbol).
			Str("price", stale.String()).
			Msg("Quote service failed, using stale cached price")
		return stale, nil
	}

	return decimal.Zero, err
}

// fetch retrieves the price from the quote service with bounded retries.
func (c *Client) fetch(ctx context.Context, symbol string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/quotes/%s", c.baseURL, symbol)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrPriceSourceUnavailable, ctx.Err())
			case <-time.After(retryBackoff * time.Duration(attempt-1)):
			}
		}

		price, err := c.fetchOnce(ctx, url)
		if err == nil {
			return price, nil
		}
		if errors.Is(err, domain.ErrUnknownSymbol) {
			return decimal.Zero, err
		}

		lastErr = err
		c.log.Debug().
			Err(err).
			Str("symbol", symbol).
			Int("attempt", attempt).
			Msg("Quote fetch attempt failed")
	}

	return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrPriceSourceUnavailable, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return decimal.Zero, fmt.Errorf("request timed out: %w", err)
		}
		return decimal.Zero, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return decimal.Zero, domain.ErrUnknownSymbol
	case resp.StatusCode != http.StatusOK:
		return decimal.Zero, fmt.Errorf("quote service returned status %d", resp.StatusCode)
	}

	var result quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse response: %w", err)
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q in response: %w", result.Price, err)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("non-positive price %s in response", result.Price)
	}

	return price, nil
}

// getStaleFromCache retrieves a cached price even if expired, as long as it
// is younger than the stale ceiling. A day-old price is no longer a usable
// trade reference.
func (c *Client) getStaleFromCache(symbol string) (decimal.Decimal, bool) {
	if c.cacheRepo == nil {
		return decimal.Zero, false
	}

	var cached cachedQuote
	found, err := c.cacheRepo.GetIfYoungerThan(clientdata.TableQuotes, symbol, clientdata.TTLQuoteStale, &cached)
	if err != nil || !found {
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(cached.Price)
	if err != nil {
		return decimal.Zero, false
	}

	return price, true
}
