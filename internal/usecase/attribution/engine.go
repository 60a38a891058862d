package attribution

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// Engine computes how much of an asset's balance change over a time window is
// attributable to each tracked goal, honoring allocation targets,
// under/over-allocation, and sharing with untracked goals.
//
// The window is start-exclusive, end-inclusive: a deposit recorded before
// tracking began must not count. Internally the window is subdivided at every
// transaction and allocation-change timestamp inside it, because both target
// fractions and balance can change multiple times mid-window; each event is
// attributed using the state in force immediately before it, and results are
// summed per goal.
//
// Attribution is pure computation over data fetched once per call; no
// rounding happens inside the engine.
type Engine struct {
	Ledger domain.LedgerRepository
}

// NewEngine creates a new Engine instance
func NewEngine(ledger domain.LedgerRepository) *Engine {
	return &Engine{Ledger: ledger}
}

// ledgerEvent is a single timeline event inside the window: either a
// transaction (balance change) or an allocation change (target change).
type ledgerEvent struct {
	at       time.Time
	sequence int64
	isAlloc  bool

	// allocation change
	goalID uuid.UUID
	target decimal.Decimal

	// transaction
	amount decimal.Decimal
}

// AttributedDelta returns, for each goal in goalIDs, the portion of the
// asset's balance change over (start, end] attributable to that goal.
// Goals receive zero when nothing is attributable; every requested goal is
// present in the result.
//
// Two kinds of events move a goal's total:
//   - transactions change the balance; the realized change is split across
//     goals by target weight, subject to the coverage rules below
//   - allocation changes move target ownership between goals; the claims
//     backing the balance shift accordingly, conserving their sum, so a
//     reallocation decreases one goal exactly as much as it increases
//     another
//
// Returns ErrInvalidWindow when end precedes start.
func (e *Engine) AttributedDelta(ctx context.Context, assetID uuid.UUID, goalIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	if end.Before(start) {
		return nil, domain.ErrInvalidWindow
	}

	result := make(map[uuid.UUID]decimal.Decimal, len(goalIDs))
	tracked := make(map[uuid.UUID]bool, len(goalIDs))
	for _, goalID := range goalIDs {
		result[goalID] = decimal.Zero
		tracked[goalID] = true
	}

	history, err := e.Ledger.AllocationHistoryFor(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read allocation history: %w", err)
	}

	// Without any allocation history, nothing is attributable regardless of
	// transactions.
	if len(history) == 0 {
		return result, nil
	}

	txs, err := e.Ledger.TransactionsFor(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	balance := balanceAt(txs, start)
	targets := allocationsAt(history, start)
	events := windowEvents(txs, history, start, end)

	for _, event := range events {
		if event.isAlloc {
			before := claimsFor(targets, balance)
			targets[event.goalID] = event.target
			after := claimsFor(targets, balance)
			for goalID := range tracked {
				shift := after[goalID].Sub(before[goalID])
				if !shift.IsZero() {
					result[goalID] = result[goalID].Add(shift)
				}
			}
			continue
		}

		for goalID, share := range attributeBalanceChange(balance, targets, tracked, event.amount) {
			result[goalID] = result[goalID].Add(share)
		}
		balance = balance.Add(event.amount)
	}

	return result, nil
}

// windowEvents merges transactions and allocation changes with timestamps in
// (start, end] into one deterministically ordered stream. At equal
// timestamps allocation changes order before transactions, mirroring the
// at-or-before semantics of AllocationsAt: the targets in force immediately
// before a transaction include changes recorded at its exact instant.
func windowEvents(txs []domain.Transaction, history []domain.AllocationHistory, start, end time.Time) []ledgerEvent {
	events := make([]ledgerEvent, 0, len(txs)+len(history))
	for _, entry := range history {
		if !entry.Timestamp.After(start) || entry.Timestamp.After(end) {
			continue
		}
		events = append(events, ledgerEvent{
			at:       entry.Timestamp,
			sequence: entry.Sequence,
			isAlloc:  true,
			goalID:   entry.GoalID,
			target:   entry.TargetAmount,
		})
	}
	for _, tx := range txs {
		if !tx.Timestamp.After(start) || tx.Timestamp.After(end) {
			continue
		}
		events = append(events, ledgerEvent{
			at:       tx.Timestamp,
			sequence: tx.Sequence,
			amount:   tx.Amount,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.Before(events[j].at)
		}
		if events[i].isAlloc != events[j].isAlloc {
			return events[i].isAlloc
		}
		return events[i].sequence < events[j].sequence
	})
	return events
}

// attributeBalanceChange applies the ownership rules to a single balance
// change. balance is the asset balance immediately before the change,
// targets the per-goal targets in force at that instant (all goals, tracked
// or not), delta the signed change. Returns per-goal shares for tracked
// goals only; goals with nothing attributed are absent.
//
// Rules, for total target S and balance B:
//   - S == 0: nothing is attributable.
//   - B == S and every targeted goal is tracked (fully and uniquely
//     allocated): the whole delta passes through proportionally to target
//     weight.
//   - Otherwise only the covered portion of the targets moves: attributed
//     total = min(B+delta, S) - min(B, S), split by target weight. Deposits
//     landing above the targets sit unallocated and credit no goal;
//     withdrawals eat the unallocated buffer before touching goal claims.
func attributeBalanceChange(balance decimal.Decimal, targets map[uuid.UUID]decimal.Decimal, tracked map[uuid.UUID]bool, delta decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	totalTarget := decimal.Zero
	uniquelyTracked := true
	for goalID, target := range targets {
		if target.LessThanOrEqual(decimal.Zero) {
			continue
		}
		totalTarget = totalTarget.Add(target)
		if !tracked[goalID] {
			uniquelyTracked = false
		}
	}

	if totalTarget.LessThanOrEqual(decimal.Zero) || delta.IsZero() {
		return nil
	}

	attributable := delta
	if !balance.Equal(totalTarget) || !uniquelyTracked {
		coveredBefore := decimal.Min(balance, totalTarget)
		coveredAfter := decimal.Min(balance.Add(delta), totalTarget)
		attributable = coveredAfter.Sub(coveredBefore)
	}

	if attributable.IsZero() {
		return nil
	}

	shares := make(map[uuid.UUID]decimal.Decimal)
	for goalID, target := range targets {
		if !tracked[goalID] || target.LessThanOrEqual(decimal.Zero) {
			continue
		}
		// multiply before divide
		shares[goalID] = target.Mul(attributable).Div(totalTarget)
	}
	return shares
}

// claimsFor computes each goal's claim: the slice of the balance currently
// backing its target. Claims sum to min(balance, total target); reallocating
// targets moves claims between goals without changing the sum.
func claimsFor(targets map[uuid.UUID]decimal.Decimal, balance decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	totalTarget := decimal.Zero
	for _, target := range targets {
		if target.IsPositive() {
			totalTarget = totalTarget.Add(target)
		}
	}

	claims := make(map[uuid.UUID]decimal.Decimal, len(targets))
	if !totalTarget.IsPositive() {
		return claims
	}

	covered := decimal.Min(balance, totalTarget)
	for goalID, target := range targets {
		if target.IsPositive() {
			claims[goalID] = target.Mul(covered).Div(totalTarget)
		}
	}
	return claims
}
