package trading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/database"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/events"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/holdings"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/ledger"
)

// avgCostScale is the decimal scale for weighted-average cost division
const avgCostScale = 8

// maxCommitAttempts bounds retries when an optimistic commit loses the race
const maxCommitAttempts = 3

// Processor executes trades. Each execution validates the request, prices it,
// reconciles the holding, and commits the ledger append plus the holding
// mutation in one database transaction.
type Processor struct {
	db           *sql.DB
	holdingsRepo *holdings.Repository
	ledgerRepo   *ledger.Repository
	priceSource  domain.PriceSource
	eventManager *events.Manager
	locks        *keyLocks
	maxShares    int64
	log          zerolog.Logger
}

// NewProcessor creates a trade processor.
// eventManager is optional - if nil, no events are emitted.
func NewProcessor(
	db *sql.DB,
	holdingsRepo *holdings.Repository,
	ledgerRepo *ledger.Repository,
	priceSource domain.PriceSource,
	eventManager *events.Manager,
	maxShares int64,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		db:           db,
		holdingsRepo: holdingsRepo,
		ledgerRepo:   ledgerRepo,
		priceSource:  priceSource,
		eventManager: eventManager,
		locks:        newKeyLocks(),
		maxShares:    maxShares,
		log:          log.With().Str("service", "trade_processor").Logger(),
	}
}

// Execute runs one trade end to end. On any error no state changes.
// Executions for the same (owner, symbol) serialize; distinct keys
// run in parallel.
func (p *Processor) Execute(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	if err := p.validate(&req); err != nil {
		return nil, err
	}

	price, err := p.priceSource.Quote(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	unlock := p.locks.Lock(req.Owner, req.Symbol)
	defer unlock()

	var result *TradeResult
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		result, err = p.executeOnce(ctx, req, price)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return nil, err
		}
		// Another writer slipped past the lock (e.g. an external process).
		// Re-read and retry on a fresh snapshot.
		p.log.Warn().
			Str("owner", req.Owner).
			Str("symbol", req.Symbol).
			Int("attempt", attempt).
			Msg("Optimistic commit conflict, retrying")
	}
	if err != nil {
		return nil, err
	}

	p.log.Info().
		Str("owner", req.Owner).
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Int64("shares", req.Shares).
		Str("price", price.String()).
		Msg("Trade executed")

	p.emitEvents(result)

	return result, nil
}

// validate rejects malformed requests before any side effects
func (p *Processor) validate(req *TradeRequest) error {
	if req.Owner == "" {
		return domain.ErrUnauthenticated
	}

	if req.Shares <= 0 || req.Shares > p.maxShares {
		return fmt.Errorf("%w: %d (must be 1..%d)", domain.ErrInvalidQuantity, req.Shares, p.maxShares)
	}

	if req.Side != domain.TradeSideBuy && req.Side != domain.TradeSideSell {
		return fmt.Errorf("invalid trade side: %q", req.Side)
	}

	req.Symbol = domain.NormalizeSymbol(req.Symbol)
	if req.Symbol == "" {
		return domain.ErrUnknownSymbol
	}

	return nil
}

// executeOnce performs one read-reconcile-commit cycle
func (p *Processor) executeOnce(ctx context.Context, req TradeRequest, price decimal.Decimal) (*TradeResult, error) {
	current, err := p.holdingsRepo.GetBySymbol(ctx, req.Owner, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	next, err := reconcile(req, current, price)
	if err != nil {
		return nil, err
	}

	txn := ledger.NewTransaction(req.Owner, req.Symbol, req.Side, req.Shares, price)

	err = database.WithTransactionContext(ctx, p.db, func(tx *sql.Tx) error {
		if err := p.ledgerRepo.InsertTx(tx, txn); err != nil {
			return err
		}
		return p.commitHolding(tx, req, current, next)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return nil, domain.ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return &TradeResult{Transaction: txn, Holding: next}, nil
}

// commitHolding applies the reconciled position inside the transaction
func (p *Processor) commitHolding(tx *sql.Tx, req TradeRequest, current, next *holdings.Holding) error {
	switch {
	case current == nil:
		// Fresh position from a first buy
		return p.holdingsRepo.InsertTx(tx, next)
	case next == nil:
		// Sell closed the position
		return p.holdingsRepo.DeleteTx(tx, req.Owner, req.Symbol, current.Version)
	default:
		return p.holdingsRepo.UpdateTx(tx, req.Owner, req.Symbol, next.Shares, next.AvgCost, current.Version)
	}
}

// reconcile computes the post-trade holding without side effects.
// Returns nil when the trade closes the position.
func reconcile(req TradeRequest, current *holdings.Holding, price decimal.Decimal) (*holdings.Holding, error) {
	switch req.Side {
	case domain.TradeSideBuy:
		if current == nil {
			return &holdings.Holding{
				Owner:   req.Owner,
				Symbol:  req.Symbol,
				Shares:  req.Shares,
				AvgCost: price,
				Version: 1,
			}, nil
		}

		// Weighted average over the prior basis and the incoming lot
		newShares := current.Shares + req.Shares
		oldBasis := current.AvgCost.Mul(decimal.NewFromInt(current.Shares))
		addBasis := price.Mul(decimal.NewFromInt(req.Shares))
		newAvg := oldBasis.Add(addBasis).DivRound(decimal.NewFromInt(newShares), avgCostScale)

		return &holdings.Holding{
			Owner:   req.Owner,
			Symbol:  req.Symbol,
			Shares:  newShares,
			AvgCost: newAvg,
			Version: current.Version + 1,
		}, nil

	case domain.TradeSideSell:
		held := int64(0)
		if current != nil {
			held = current.Shares
		}
		if req.Shares > held {
			return nil, &domain.InsufficientSharesError{Symbol: req.Symbol, Held: held}
		}

		remaining := held - req.Shares
		if remaining == 0 {
			return nil, nil
		}

		// Selling never moves the average cost
		return &holdings.Holding{
			Owner:   req.Owner,
			Symbol:  req.Symbol,
			Shares:  remaining,
			AvgCost: current.AvgCost,
			Version: current.Version + 1,
		}, nil

	default:
		return nil, fmt.Errorf("invalid trade side: %q", req.Side)
	}
}

// emitEvents publishes trade and holding notifications after commit
func (p *Processor) emitEvents(result *TradeResult) {
	if p.eventManager == nil {
		return
	}

	txn := result.Transaction
	p.eventManager.Publish(&events.TradeExecutedData{
		TransactionID: txn.ID,
		Owner:         txn.Owner,
		Symbol:        txn.Symbol,
		Side:          string(txn.Side),
		Shares:        txn.Shares,
		Price:         txn.Price.String(),
		Total:         txn.Total.String(),
	})

	change := events.HoldingChangedData{
		Owner:  txn.Owner,
		Symbol: txn.Symbol,
		Closed: result.Holding == nil,
	}
	if result.Holding != nil {
		change.Shares = result.Holding.Shares
	}
	p.eventManager.Publish(&change)
}
