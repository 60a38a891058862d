package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyExecutionRecord_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		record  MonthlyExecutionRecord
		wantErr bool
		errMsg  string
	}{
		{
			name: "Draft record should pass",
			record: MonthlyExecutionRecord{
				ID:         uuid.New(),
				MonthLabel: "2025-03",
				Status:     ExecutionStatusDraft,
			},
			wantErr: false,
		},
		{
			name: "Executing record with start timestamp should pass",
			record: MonthlyExecutionRecord{
				ID:         uuid.New(),
				MonthLabel: "2025-03",
				Status:     ExecutionStatusExecuting,
				StartedAt:  &now,
			},
			wantErr: false,
		},
		{
			name: "Executing record without start timestamp should fail",
			record: MonthlyExecutionRecord{
				ID:         uuid.New(),
				MonthLabel: "2025-03",
				Status:     ExecutionStatusExecuting,
			},
			wantErr: true,
			errMsg:  "executing record must have a start timestamp",
		},
		{
			name: "Closed record without completion timestamp should fail",
			record: MonthlyExecutionRecord{
				ID:          uuid.New(),
				MonthLabel:  "2025-03",
				Status:      ExecutionStatusClosed,
				StartedAt:   &now,
				CompletedAt: nil,
			},
			wantErr: true,
			errMsg:  "closed record must have a completion timestamp",
		},
		{
			name: "Unknown status should fail",
			record: MonthlyExecutionRecord{
				ID:         uuid.New(),
				MonthLabel: "2025-03",
				Status:     ExecutionStatus("PAUSED"),
			},
			wantErr: true,
			errMsg:  "execution status must be DRAFT, EXECUTING, or CLOSED",
		},
		{
			name: "Bad month label should fail",
			record: MonthlyExecutionRecord{
				ID:         uuid.New(),
				MonthLabel: "03-2025",
				Status:     ExecutionStatusDraft,
			},
			wantErr: true,
			errMsg:  "month label must be in YYYY-MM format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.EqualError(t, err, tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMonthlyExecutionRecord_CanUndo(t *testing.T) {
	now := time.Now()
	deadline := now.Add(time.Hour)

	record := MonthlyExecutionRecord{CanUndoUntil: &deadline}
	assert.True(t, record.CanUndo(now))
	assert.False(t, record.CanUndo(deadline), "the deadline itself is outside the window")
	assert.False(t, record.CanUndo(deadline.Add(time.Second)))

	record.CanUndoUntil = nil
	assert.False(t, record.CanUndo(now), "nil deadline means no undo")
}

func TestNewExecutionSnapshot_CopiesPlanEntries(t *testing.T) {
	goalA := uuid.New()
	goalB := uuid.New()
	plan := &MonthlyPlan{
		ID:         uuid.New(),
		MonthLabel: "2025-03",
		Entries: []PlanEntry{
			{GoalID: goalA, RequiredMonthly: decimal.NewFromInt(300)},
			{GoalID: goalB, RequiredMonthly: decimal.NewFromInt(200)},
		},
	}

	snapshot := NewExecutionSnapshot(plan)

	require.Len(t, snapshot.GoalSnapshots, 2)
	assert.True(t, snapshot.TotalPlanned.Equal(decimal.NewFromInt(500)))

	// Mutating the plan afterwards must not leak into the snapshot.
	plan.Entries[0].RequiredMonthly = decimal.NewFromInt(9999)
	assert.True(t, snapshot.GoalSnapshots[0].PlannedAmount.Equal(decimal.NewFromInt(300)))
}
