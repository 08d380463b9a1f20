package holdings

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
)

// holdingColumns is the list of columns for the holdings table.
// Used to avoid SELECT * which can break when schema changes.
const holdingColumns = `owner, symbol, shares, avg_cost, version, created_at, updated_at`

// Repository handles holdings table operations.
// Reads run against the connection; writes are transaction-scoped so the
// trade processor can commit a holding mutation and a ledger append together.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new holdings repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

// GetBySymbol returns the holding for (owner, symbol), or nil when absent
func (r *Repository) GetBySymbol(ctx context.Context, owner, symbol string) (*Holding, error) {
	query := "SELECT " + holdingColumns + " FROM holdings WHERE owner = ? AND symbol = ?"

	rows, err := r.db.QueryContext(ctx, query, owner, domain.NormalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to query holding: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil // No position
	}

	holding, err := scanHolding(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}

	return &holding, nil
}

// GetAll returns all holdings for an owner, most recently updated first
func (r *Repository) GetAll(ctx context.Context, owner string) ([]Holding, error) {
	query := "SELECT " + holdingColumns + " FROM holdings WHERE owner = ? ORDER BY updated_at DESC, symbol"

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var result []Holding
	for rows.Next() {
		holding, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		result = append(result, holding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return result, nil
}

// ListAll returns every holding across all owners, used by the ledger audit
func (r *Repository) ListAll(ctx context.Context) ([]Holding, error) {
	query := "SELECT " + holdingColumns + " FROM holdings ORDER BY owner, symbol"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var result []Holding
	for rows.Next() {
		holding, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		result = append(result, holding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return result, nil
}

// InsertTx inserts a fresh holding inside an existing transaction.
// Fails with domain.ErrConcurrencyConflict if a row appeared concurrently.
func (r *Repository) InsertTx(tx *sql.Tx, h *Holding) error {
	query := `
		INSERT INTO holdings (owner, symbol, shares, avg_cost, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, datetime('now'), datetime('now'))`

	_, err := tx.Exec(query, h.Owner, domain.NormalizeSymbol(h.Symbol), h.Shares, h.AvgCost.String())
	if err != nil {
		if isConstraintViolation(err) {
			return domain.ErrConcurrencyConflict
		}
		return fmt.Errorf("failed to insert holding: %w", err)
	}

	return nil
}

// UpdateTx updates an existing holding inside a transaction, guarded by the
// version read earlier. A version mismatch means another writer got there
// first and surfaces as domain.ErrConcurrencyConflict.
func (r *Repository) UpdateTx(tx *sql.Tx, owner, symbol string, shares int64, avgCost decimal.Decimal, expectedVersion int64) error {
	query := `
		UPDATE holdings
		SET shares = ?, avg_cost = ?, version = version + 1, updated_at = datetime('now')
		WHERE owner = ? AND symbol = ? AND version = ?`

	result, err := tx.Exec(query, shares, avgCost.String(), owner, domain.NormalizeSymbol(symbol), expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrConcurrencyConflict
	}

	return nil
}

// DeleteTx removes a holding inside a transaction, guarded by version.
// Used when a sell closes the position entirely.
func (r *Repository) DeleteTx(tx *sql.Tx, owner, symbol string, expectedVersion int64) error {
	query := "DELETE FROM holdings WHERE owner = ? AND symbol = ? AND version = ?"

	result, err := tx.Exec(query, owner, domain.NormalizeSymbol(symbol), expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrConcurrencyConflict
	}

	return nil
}

// scanHolding scans a holding row
func scanHolding(rows *sql.Rows) (Holding, error) {
	var h Holding
	var avgCost string
	var createdAt, updatedAt string

	if err := rows.Scan(&h.Owner, &h.Symbol, &h.Shares, &avgCost, &h.Version, &createdAt, &updatedAt); err != nil {
		return Holding{}, err
	}

	cost, err := decimal.NewFromString(avgCost)
	if err != nil {
		return Holding{}, fmt.Errorf("invalid avg_cost %q: %w", avgCost, err)
	}
	h.AvgCost = cost

	if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		h.CreatedAt = t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", updatedAt); err == nil {
		h.UpdatedAt = t
	}

	return h, nil
}

// isConstraintViolation detects primary key collisions across sqlite drivers
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint violation")
}
