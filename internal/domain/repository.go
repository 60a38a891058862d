package domain

import (
	"context"

	"github.com/google/uuid"
)

// AssetRepository defines the interface for asset persistence operations
type AssetRepository interface {
	// GetByID retrieves an asset by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)

	// Create creates a new asset
	Create(ctx context.Context, asset *Asset) error

	// List retrieves all assets
	List(ctx context.Context) ([]*Asset, error)
}

// GoalRepository defines the interface for goal persistence operations
type GoalRepository interface {
	// GetByID retrieves a goal by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Goal, error)

	// Create creates a new goal
	Create(ctx context.Context, goal *Goal) error

	// List retrieves all goals
	List(ctx context.Context) ([]*Goal, error)
}

// LedgerRepository defines the read/append interface over the two
// append-only timelines attribution is computed from: raw transactions and
// allocation history. It also exposes the current-state allocation cache,
// which is a derived view refreshed by the snapshotter.
type LedgerRepository interface {
	// AddTransaction appends a balance-affecting event to an asset's ledger
	AddTransaction(ctx context.Context, tx *Transaction) error

	// TransactionsFor retrieves all transactions for an asset, ordered by
	// timestamp then insertion sequence
	TransactionsFor(ctx context.Context, assetID uuid.UUID) ([]Transaction, error)

	// AppendAllocationHistory appends an ownership-affecting event.
	// History entries are never mutated or deleted.
	AppendAllocationHistory(ctx context.Context, entry *AllocationHistory) error

	// AllocationHistoryFor retrieves all allocation history entries for an
	// asset, ordered by timestamp then insertion sequence
	AllocationHistoryFor(ctx context.Context, assetID uuid.UUID) ([]AllocationHistory, error)

	// AssetsLinkedToGoals returns the IDs of assets that have at least one
	// allocation history entry or current allocation touching any of the
	// given goals
	AssetsLinkedToGoals(ctx context.Context, goalIDs []uuid.UUID) ([]uuid.UUID, error)

	// CurrentAllocationsFor retrieves the cached current-state allocations
	// for an asset
	CurrentAllocationsFor(ctx context.Context, assetID uuid.UUID) ([]AssetAllocation, error)

	// AllocationsForGoal retrieves the cached current-state allocations
	// referencing a goal, across all assets
	AllocationsForGoal(ctx context.Context, goalID uuid.UUID) ([]AssetAllocation, error)

	// ReplaceCurrentAllocations replaces the cached current-state
	// allocations for an asset with the given rows
	ReplaceCurrentAllocations(ctx context.Context, assetID uuid.UUID, allocations []AssetAllocation) error
}

// PlanRepository defines the interface for monthly plan persistence
type PlanRepository interface {
	// GetByMonth retrieves the plan for a month label (YYYY-MM).
	// Returns ErrPlanNotFound if no plan exists.
	GetByMonth(ctx context.Context, monthLabel string) (*MonthlyPlan, error)

	// Save creates or replaces the plan for its month
	Save(ctx context.Context, plan *MonthlyPlan) error
}

// ExecutionRecordRepository defines the interface for execution record
// persistence operations
type ExecutionRecordRepository interface {
	// GetByMonth retrieves the execution record for a month label.
	// Returns ErrRecordNotFound if no record exists.
	GetByMonth(ctx context.Context, monthLabel string) (*MonthlyExecutionRecord, error)

	// Create creates a new execution record
	Create(ctx context.Context, record *MonthlyExecutionRecord) error

	// Update persists changes to an existing execution record
	Update(ctx context.Context, record *MonthlyExecutionRecord) error
}

// ContributionRepository defines the interface for contribution persistence
type ContributionRepository interface {
	// Create creates a new contribution entry
	Create(ctx context.Context, contribution *Contribution) error

	// ListForGoal retrieves all contributions for a goal, newest first
	ListForGoal(ctx context.Context, goalID uuid.UUID) ([]Contribution, error)
}
