package attribution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// Resolver answers point-in-time allocation and balance queries for assets.
// Both queries are reconstructed from the append-only timelines rather than
// from any cached current-state table, so answers are historically correct
// even when the cache lags.
type Resolver struct {
	Ledger domain.LedgerRepository
}

// NewResolver creates a new Resolver instance
func NewResolver(ledger domain.LedgerRepository) *Resolver {
	return &Resolver{Ledger: ledger}
}

// AllocationsAt determines the per-goal target amounts in effect for an asset
// at the given instant: for each goal, the most recent allocation history
// entry at-or-before the timestamp. Goals with no entry by then are absent
// from the result.
func (r *Resolver) AllocationsAt(ctx context.Context, assetID uuid.UUID, at time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	history, err := r.Ledger.AllocationHistoryFor(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read allocation history: %w", err)
	}
	return allocationsAt(history, at), nil
}

// BalanceAt sums all transaction amounts for an asset at-or-before the given
// instant. The result can be negative if withdrawals exceed deposits; it is
// not clamped.
func (r *Resolver) BalanceAt(ctx context.Context, assetID uuid.UUID, at time.Time) (decimal.Decimal, error) {
	txs, err := r.Ledger.TransactionsFor(ctx, assetID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read transactions: %w", err)
	}
	return balanceAt(txs, at), nil
}

// allocationsAt resolves the latest target per goal at-or-before the instant
// from a pre-fetched history slice. Entries sharing a timestamp are resolved
// by insertion sequence (later insertion wins).
func allocationsAt(history []domain.AllocationHistory, at time.Time) map[uuid.UUID]decimal.Decimal {
	domain.SortAllocationHistory(history)

	targets := make(map[uuid.UUID]decimal.Decimal)
	for _, entry := range history {
		if entry.Timestamp.After(at) {
			break
		}
		targets[entry.GoalID] = entry.TargetAmount
	}
	return targets
}

// balanceAt sums transaction amounts at-or-before the instant from a
// pre-fetched slice.
func balanceAt(txs []domain.Transaction, at time.Time) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		if !tx.Timestamp.After(at) {
			balance = balance.Add(tx.Amount)
		}
	}
	return balance
}
