package domain

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction represents a single balance-affecting event on an asset.
// Amount is signed: positive = deposit, negative = withdrawal.
type Transaction struct {
	ID        uuid.UUID
	AssetID   uuid.UUID
	Amount    decimal.Decimal
	Timestamp time.Time
	// Sequence is the insertion order assigned by the store. It breaks
	// ordering ties between transactions sharing the same timestamp.
	Sequence int64
	Note     string
}

// Validate ensures the transaction adheres to domain rules
// Returns an error if validation fails
func (t *Transaction) Validate() error {
	if t.AssetID == uuid.Nil {
		return errors.New("transaction must reference an asset")
	}
	if t.Amount.IsZero() {
		return errors.New("transaction amount cannot be zero")
	}
	if t.Timestamp.IsZero() {
		return errors.New("transaction timestamp cannot be zero")
	}
	return nil
}

// SortTransactions orders transactions by timestamp, ties broken by
// insertion sequence. Attribution depends on this ordering being
// deterministic.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Timestamp.Equal(txs[j].Timestamp) {
			return txs[i].Sequence < txs[j].Sequence
		}
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})
}
