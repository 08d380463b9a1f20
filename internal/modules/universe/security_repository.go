package universe

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/domain"
)

// SecurityRepository handles securities table operations
type SecurityRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// securitiesColumns is the list of columns for the securities table.
// Used to avoid SELECT * which can break when schema changes.
const securitiesColumns = `symbol, name, sector, active, created_at`

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		db:  db,
		log: log.With().Str("repo", "security").Logger(),
	}
}

// GetBySymbol returns a security by symbol, or nil when not found
func (r *SecurityRepository) GetBySymbol(symbol string) (*Security, error) {
	query := "SELECT " + securitiesColumns + " FROM securities WHERE symbol = ?"

	rows, err := r.db.Query(query, domain.NormalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to query security by symbol: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil // Security not found
	}

	security, err := scanSecurity(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan security: %w", err)
	}

	return &security, nil
}

// GetAllActive returns all active securities ordered by symbol
func (r *SecurityRepository) GetAllActive() ([]Security, error) {
	query := "SELECT " + securitiesColumns + " FROM securities WHERE active = 1 ORDER BY symbol"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active securities: %w", err)
	}
	defer rows.Close()

	var securities []Security
	for rows.Next() {
		security, err := scanSecurity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		securities = append(securities, security)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate securities: %w", err)
	}

	return securities, nil
}

// Upsert inserts or replaces a security
func (r *SecurityRepository) Upsert(security Security) error {
	symbol := domain.NormalizeSymbol(security.Symbol)
	if symbol == "" {
		return fmt.Errorf("security symbol is required")
	}

	query := `
		INSERT INTO securities (symbol, name, sector, active, created_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			sector = excluded.sector,
			active = excluded.active`

	active := 0
	if security.Active {
		active = 1
	}

	if _, err := r.db.Exec(query, symbol, security.Name, nullString(security.Sector), active); err != nil {
		return fmt.Errorf("failed to upsert security %s: %w", symbol, err)
	}

	return nil
}

// Deactivate marks a security as no longer tradable without deleting history
func (r *SecurityRepository) Deactivate(symbol string) error {
	result, err := r.db.Exec("UPDATE securities SET active = 0 WHERE symbol = ?",
		domain.NormalizeSymbol(symbol))
	if err != nil {
		return fmt.Errorf("failed to deactivate security %s: %w", symbol, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("security not found: %s", symbol)
	}

	return nil
}

// scanSecurity scans a security row
func scanSecurity(rows *sql.Rows) (Security, error) {
	var s Security
	var sector sql.NullString
	var active int
	var createdAt string

	if err := rows.Scan(&s.Symbol, &s.Name, &sector, &active, &createdAt); err != nil {
		return Security{}, err
	}

	s.Sector = sector.String
	s.Active = active == 1
	if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		s.CreatedAt = t
	}

	return s, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
