package domain

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationHistory is an immutable, append-only record of an allocation
// target change: "as of Timestamp, TargetAmount of AssetID is earmarked for
// GoalID". Entries are never mutated or deleted; the full timeline is what
// allows point-in-time reconstruction of who owned what, when.
//
// Invariant: for a given (asset, goal) pair there is at most one entry at any
// exact timestamp. The allocation-update services only append when the target
// actually changes.
type AllocationHistory struct {
	ID           uuid.UUID
	AssetID      uuid.UUID
	GoalID       uuid.UUID
	TargetAmount decimal.Decimal
	Timestamp    time.Time
	// Sequence is the insertion order assigned by the store
	Sequence int64
}

// Validate ensures the allocation history entry adheres to domain rules
// Returns an error if validation fails
func (h *AllocationHistory) Validate() error {
	if h.AssetID == uuid.Nil {
		return errors.New("allocation history entry must reference an asset")
	}
	if h.GoalID == uuid.Nil {
		return errors.New("allocation history entry must reference a goal")
	}
	if h.TargetAmount.LessThan(decimal.Zero) {
		return errors.New("allocation target amount cannot be negative")
	}
	if h.Timestamp.IsZero() {
		return errors.New("allocation history timestamp cannot be zero")
	}
	return nil
}

// SortAllocationHistory orders entries by timestamp, ties broken by
// insertion sequence.
func SortAllocationHistory(entries []AllocationHistory) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Sequence < entries[j].Sequence
		}
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}

// AssetAllocation is the current-state projection of AllocationHistory: the
// latest target amount per (asset, goal) pair. It exists as a read
// optimization for the UI layer; attribution never trusts it and always
// recomputes from the history.
type AssetAllocation struct {
	ID      uuid.UUID
	AssetID uuid.UUID
	GoalID  uuid.UUID
	Amount  decimal.Decimal
}
