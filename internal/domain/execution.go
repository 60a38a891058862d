package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExecutionStatus represents the lifecycle state of a monthly execution record
type ExecutionStatus string

const (
	ExecutionStatusDraft     ExecutionStatus = "DRAFT"
	ExecutionStatusExecuting ExecutionStatus = "EXECUTING"
	ExecutionStatusClosed    ExecutionStatus = "CLOSED"
)

// MonthlyExecutionRecord represents one calendar month's committed execution
// of a savings plan. The Snapshot is frozen when tracking starts and never
// reflects later edits to the underlying plan.
type MonthlyExecutionRecord struct {
	ID          uuid.UUID
	MonthLabel  string // YYYY-MM
	Status      ExecutionStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	GoalIDs     []uuid.UUID
	Snapshot    ExecutionSnapshot
	// CanUndoUntil bounds the window during which the most recent forward
	// transition (start or completion) may be reverted. Nil means no undo
	// is available.
	CanUndoUntil *time.Time
}

// CanUndo reports whether the most recent forward transition is still
// undoable at the given instant.
func (r *MonthlyExecutionRecord) CanUndo(now time.Time) bool {
	return r.CanUndoUntil != nil && now.Before(*r.CanUndoUntil)
}

// Validate ensures the record adheres to domain rules
// Returns an error if validation fails
func (r *MonthlyExecutionRecord) Validate() error {
	if err := ValidateMonthLabel(r.MonthLabel); err != nil {
		return err
	}
	switch r.Status {
	case ExecutionStatusDraft, ExecutionStatusExecuting, ExecutionStatusClosed:
	default:
		return errors.New("execution status must be DRAFT, EXECUTING, or CLOSED")
	}
	if r.Status == ExecutionStatusExecuting && r.StartedAt == nil {
		return errors.New("executing record must have a start timestamp")
	}
	if r.Status == ExecutionStatusClosed && r.CompletedAt == nil {
		return errors.New("closed record must have a completion timestamp")
	}
	return nil
}

// ExecutionSnapshot holds the per-goal planned amounts frozen at
// plan-commit time.
type ExecutionSnapshot struct {
	GoalSnapshots []GoalSnapshot
	TotalPlanned  decimal.Decimal
}

// GoalSnapshot represents a single goal's planned amount inside a snapshot
type GoalSnapshot struct {
	GoalID        uuid.UUID
	PlannedAmount decimal.Decimal
}

// NewExecutionSnapshot freezes the given plan into an immutable snapshot.
// The plan's entries are copied; later edits to the plan do not flow through.
func NewExecutionSnapshot(plan *MonthlyPlan) ExecutionSnapshot {
	snapshots := make([]GoalSnapshot, 0, len(plan.Entries))
	total := decimal.Zero
	for _, entry := range plan.Entries {
		snapshots = append(snapshots, GoalSnapshot{
			GoalID:        entry.GoalID,
			PlannedAmount: entry.RequiredMonthly,
		})
		total = total.Add(entry.RequiredMonthly)
	}
	return ExecutionSnapshot{
		GoalSnapshots: snapshots,
		TotalPlanned:  total,
	}
}
