package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/holdings"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/ledger"
)

// LedgerAuditJob replays the transaction ledger for every stored holding
// and reports drift between the replayed and stored positions. The ledger
// is the source of truth; a mismatch means a holding write was lost or
// corrupted.
type LedgerAuditJob struct {
	holdingsRepo *holdings.Repository
	ledgerRepo   *ledger.Repository
	log          zerolog.Logger
}

// NewLedgerAuditJob creates the nightly ledger audit job
func NewLedgerAuditJob(holdingsRepo *holdings.Repository, ledgerRepo *ledger.Repository, log zerolog.Logger) *LedgerAuditJob {
	return &LedgerAuditJob{
		holdingsRepo: holdingsRepo,
		ledgerRepo:   ledgerRepo,
		log:          log.With().Str("job", "ledger_audit").Logger(),
	}
}

// Run executes the ledger audit job
func (j *LedgerAuditJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	mismatches, err := j.Audit(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Ledger audit failed")
		return
	}

	if mismatches > 0 {
		j.log.Error().Int("mismatches", mismatches).Msg("Ledger audit found position drift")
	}
}

// Name returns the job name for scheduler
func (j *LedgerAuditJob) Name() string {
	return "ledger_audit"
}

// Audit checks every stored holding against a ledger replay and returns
// the number of mismatched positions.
func (j *LedgerAuditJob) Audit(ctx context.Context) (int, error) {
	startTime := time.Now()

	all, err := j.holdingsRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	mismatches := 0
	for _, h := range all {
		replayed, err := j.ledgerRepo.RebuildHolding(ctx, h.Owner, h.Symbol)
		if err != nil {
			j.log.Error().
				Err(err).
				Str("owner", h.Owner).
				Str("symbol", h.Symbol).
				Msg("Ledger replay failed")
			mismatches++
			continue
		}

		if replayed.Shares != h.Shares || !replayed.AvgCost.Equal(h.AvgCost) {
			j.log.Error().
				Str("owner", h.Owner).
				Str("symbol", h.Symbol).
				Int64("stored_shares", h.Shares).
				Int64("replayed_shares", replayed.Shares).
				Str("stored_avg_cost", h.AvgCost.String()).
				Str("replayed_avg_cost", replayed.AvgCost.String()).
				Msg("Position does not match ledger replay")
			mismatches++
		}
	}

	j.log.Info().
		Int("positions", len(all)).
		Int("mismatches", mismatches).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Ledger audit completed")

	return mismatches, nil
}
