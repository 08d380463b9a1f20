package universe

import (
	"fmt"

	"github.com/rs/zerolog"
)

// defaultSecurities is the starter universe loaded on first boot.
var defaultSecurities = []Security{
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", Sector: "Financial Services", Active: true},
	{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology", Active: true},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Sector: "Technology", Active: true},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Sector: "Technology", Active: true},
	{Symbol: "TSLA", Name: "Tesla, Inc.", Sector: "Automotive", Active: true},
	{Symbol: "BAC", Name: "Bank of America Corporation", Sector: "Financial Services", Active: true},
	{Symbol: "WFC", Name: "Wells Fargo & Company", Sector: "Financial Services", Active: true},
	{Symbol: "GS", Name: "The Goldman Sachs Group, Inc.", Sector: "Financial Services", Active: true},
}

// SeedDefaults inserts the starter universe when the securities table is empty.
// Existing rows are never modified.
func SeedDefaults(repo *SecurityRepository, log zerolog.Logger) error {
	existing, err := repo.GetAllActive()
	if err != nil {
		return fmt.Errorf("failed to check existing securities: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, security := range defaultSecurities {
		if err := repo.Upsert(security); err != nil {
			return fmt.Errorf("failed to seed security %s: %w", security.Symbol, err)
		}
	}

	log.Info().Int("count", len(defaultSecurities)).Msg("Seeded default securities universe")
	return nil
}
