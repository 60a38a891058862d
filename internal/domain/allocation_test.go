package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSortAllocationHistory_TimestampThenSequence(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []AllocationHistory{
		{ID: uuid.New(), Timestamp: at.Add(time.Hour), Sequence: 3},
		{ID: uuid.New(), Timestamp: at, Sequence: 2},
		{ID: uuid.New(), Timestamp: at, Sequence: 1},
	}

	SortAllocationHistory(entries)

	assert.Equal(t, int64(1), entries[0].Sequence)
	assert.Equal(t, int64(2), entries[1].Sequence, "timestamp ties fall back to insertion order")
	assert.Equal(t, int64(3), entries[2].Sequence)
}

func TestSortTransactions_TimestampThenSequence(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{ID: uuid.New(), Timestamp: at, Sequence: 5},
		{ID: uuid.New(), Timestamp: at.Add(-time.Minute), Sequence: 9},
		{ID: uuid.New(), Timestamp: at, Sequence: 4},
	}

	SortTransactions(txs)

	assert.Equal(t, int64(9), txs[0].Sequence)
	assert.Equal(t, int64(4), txs[1].Sequence)
	assert.Equal(t, int64(5), txs[2].Sequence)
}

func TestAllocationHistory_Validate(t *testing.T) {
	valid := AllocationHistory{
		ID:           uuid.New(),
		AssetID:      uuid.New(),
		GoalID:       uuid.New(),
		TargetAmount: decimal.NewFromFloat(0.5),
		Timestamp:    time.Now(),
	}
	assert.NoError(t, valid.Validate())

	missingGoal := valid
	missingGoal.GoalID = uuid.Nil
	assert.EqualError(t, missingGoal.Validate(), "allocation history entry must reference a goal")

	negative := valid
	negative.TargetAmount = decimal.NewFromInt(-1)
	assert.EqualError(t, negative.Validate(), "allocation target amount cannot be negative")
}

func TestValidateMonthLabel(t *testing.T) {
	assert.NoError(t, ValidateMonthLabel("2025-03"))
	assert.Error(t, ValidateMonthLabel("2025-13"))
	assert.Error(t, ValidateMonthLabel("2025-3"))
	assert.Error(t, ValidateMonthLabel(""))
}
