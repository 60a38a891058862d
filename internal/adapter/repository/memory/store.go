package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// Store is an in-memory implementation of every repository interface.
// It backs the `memory` data backend and the test suites. All methods copy
// on read and write so callers never alias stored state.
type Store struct {
	mu sync.RWMutex

	assets        map[uuid.UUID]domain.Asset
	goals         map[uuid.UUID]domain.Goal
	transactions  map[uuid.UUID][]domain.Transaction       // keyed by asset
	history       map[uuid.UUID][]domain.AllocationHistory // keyed by asset
	current       map[uuid.UUID][]domain.AssetAllocation   // keyed by asset
	plans         map[string]domain.MonthlyPlan            // keyed by month
	records       map[string]domain.MonthlyExecutionRecord // keyed by month
	contributions map[uuid.UUID][]domain.Contribution      // keyed by goal

	seq int64
}

// NewStore creates a new empty Store
func NewStore() *Store {
	return &Store{
		assets:        make(map[uuid.UUID]domain.Asset),
		goals:         make(map[uuid.UUID]domain.Goal),
		transactions:  make(map[uuid.UUID][]domain.Transaction),
		history:       make(map[uuid.UUID][]domain.AllocationHistory),
		current:       make(map[uuid.UUID][]domain.AssetAllocation),
		plans:         make(map[string]domain.MonthlyPlan),
		records:       make(map[string]domain.MonthlyExecutionRecord),
		contributions: make(map[uuid.UUID][]domain.Contribution),
	}
}

// --- AssetRepository ---

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[id]
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	return &asset, nil
}

func (s *Store) Create(ctx context.Context, asset *domain.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.ID] = *asset
	return nil
}

func (s *Store) List(ctx context.Context) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assets := make([]*domain.Asset, 0, len(s.assets))
	for _, asset := range s.assets {
		a := asset
		assets = append(assets, &a)
	}
	return assets, nil
}

// Assets returns the store viewed as an AssetRepository
func (s *Store) Assets() domain.AssetRepository { return (*assetView)(s) }

// Goals returns the store viewed as a GoalRepository
func (s *Store) Goals() domain.GoalRepository { return (*goalView)(s) }

// assetView and goalView disambiguate the overlapping method sets of
// AssetRepository and GoalRepository over one Store.
type assetView Store

func (v *assetView) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	return (*Store)(v).GetByID(ctx, id)
}

func (v *assetView) Create(ctx context.Context, asset *domain.Asset) error {
	return (*Store)(v).Create(ctx, asset)
}

func (v *assetView) List(ctx context.Context) ([]*domain.Asset, error) {
	return (*Store)(v).List(ctx)
}

type goalView Store

func (v *goalView) GetByID(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	goal, ok := v.goals[id]
	if !ok {
		return nil, domain.ErrGoalNotFound
	}
	return &goal, nil
}

func (v *goalView) Create(ctx context.Context, goal *domain.Goal) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.goals[goal.ID] = *goal
	return nil
}

func (v *goalView) List(ctx context.Context) ([]*domain.Goal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	goals := make([]*domain.Goal, 0, len(v.goals))
	for _, goal := range v.goals {
		g := goal
		goals = append(goals, &g)
	}
	return goals, nil
}

// --- LedgerRepository ---

func (s *Store) AddTransaction(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	stored := *tx
	stored.Sequence = s.seq
	tx.Sequence = s.seq
	s.transactions[tx.AssetID] = append(s.transactions[tx.AssetID], stored)
	return nil
}

func (s *Store) TransactionsFor(ctx context.Context, assetID uuid.UUID) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs := make([]domain.Transaction, len(s.transactions[assetID]))
	copy(txs, s.transactions[assetID])
	domain.SortTransactions(txs)
	return txs, nil
}

func (s *Store) AppendAllocationHistory(ctx context.Context, entry *domain.AllocationHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	stored := *entry
	stored.Sequence = s.seq
	entry.Sequence = s.seq
	s.history[entry.AssetID] = append(s.history[entry.AssetID], stored)
	return nil
}

func (s *Store) AllocationHistoryFor(ctx context.Context, assetID uuid.UUID) ([]domain.AllocationHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.AllocationHistory, len(s.history[assetID]))
	copy(entries, s.history[assetID])
	domain.SortAllocationHistory(entries)
	return entries, nil
}

func (s *Store) AssetsLinkedToGoals(ctx context.Context, goalIDs []uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(goalIDs))
	for _, goalID := range goalIDs {
		wanted[goalID] = true
	}

	seen := make(map[uuid.UUID]bool)
	var assetIDs []uuid.UUID
	for assetID, entries := range s.history {
		for _, entry := range entries {
			if wanted[entry.GoalID] && !seen[assetID] {
				seen[assetID] = true
				assetIDs = append(assetIDs, assetID)
			}
		}
	}
	for assetID, allocations := range s.current {
		for _, allocation := range allocations {
			if wanted[allocation.GoalID] && !seen[assetID] {
				seen[assetID] = true
				assetIDs = append(assetIDs, assetID)
			}
		}
	}
	return assetIDs, nil
}

func (s *Store) CurrentAllocationsFor(ctx context.Context, assetID uuid.UUID) ([]domain.AssetAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allocations := make([]domain.AssetAllocation, len(s.current[assetID]))
	copy(allocations, s.current[assetID])
	return allocations, nil
}

func (s *Store) AllocationsForGoal(ctx context.Context, goalID uuid.UUID) ([]domain.AssetAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var allocations []domain.AssetAllocation
	for _, rows := range s.current {
		for _, allocation := range rows {
			if allocation.GoalID == goalID {
				allocations = append(allocations, allocation)
			}
		}
	}
	return allocations, nil
}

func (s *Store) ReplaceCurrentAllocations(ctx context.Context, assetID uuid.UUID, allocations []domain.AssetAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]domain.AssetAllocation, len(allocations))
	copy(rows, allocations)
	s.current[assetID] = rows
	return nil
}

// --- PlanRepository ---

func (s *Store) GetByMonth(ctx context.Context, monthLabel string) (*domain.MonthlyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[monthLabel]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return copyPlan(&plan), nil
}

func (s *Store) Save(ctx context.Context, plan *domain.MonthlyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.MonthLabel] = *copyPlan(plan)
	return nil
}

// Plans returns the store viewed as a PlanRepository
func (s *Store) Plans() domain.PlanRepository { return s }

// --- ExecutionRecordRepository ---

// Records returns the store viewed as an ExecutionRecordRepository
func (s *Store) Records() domain.ExecutionRecordRepository { return (*recordView)(s) }

type recordView Store

func (v *recordView) GetByMonth(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	record, ok := v.records[monthLabel]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return copyRecord(&record), nil
}

func (v *recordView) Create(ctx context.Context, record *domain.MonthlyExecutionRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records[record.MonthLabel] = *copyRecord(record)
	return nil
}

func (v *recordView) Update(ctx context.Context, record *domain.MonthlyExecutionRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.records[record.MonthLabel]; !ok {
		return domain.ErrRecordNotFound
	}
	v.records[record.MonthLabel] = *copyRecord(record)
	return nil
}

// --- ContributionRepository ---

// Contributions returns the store viewed as a ContributionRepository
func (s *Store) Contributions() domain.ContributionRepository { return (*contributionView)(s) }

type contributionView Store

func (v *contributionView) Create(ctx context.Context, contribution *domain.Contribution) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.contributions[contribution.GoalID] = append(v.contributions[contribution.GoalID], *contribution)
	return nil
}

func (v *contributionView) ListForGoal(ctx context.Context, goalID uuid.UUID) ([]domain.Contribution, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	stored := v.contributions[goalID]
	entries := make([]domain.Contribution, 0, len(stored))
	// newest first
	for i := len(stored) - 1; i >= 0; i-- {
		entries = append(entries, stored[i])
	}
	return entries, nil
}

func copyPlan(plan *domain.MonthlyPlan) *domain.MonthlyPlan {
	clone := *plan
	clone.Entries = make([]domain.PlanEntry, len(plan.Entries))
	copy(clone.Entries, plan.Entries)
	return &clone
}

func copyRecord(record *domain.MonthlyExecutionRecord) *domain.MonthlyExecutionRecord {
	clone := *record
	clone.GoalIDs = make([]uuid.UUID, len(record.GoalIDs))
	copy(clone.GoalIDs, record.GoalIDs)
	clone.Snapshot.GoalSnapshots = make([]domain.GoalSnapshot, len(record.Snapshot.GoalSnapshots))
	copy(clone.Snapshot.GoalSnapshots, record.Snapshot.GoalSnapshots)
	if record.StartedAt != nil {
		startedAt := *record.StartedAt
		clone.StartedAt = &startedAt
	}
	if record.CompletedAt != nil {
		completedAt := *record.CompletedAt
		clone.CompletedAt = &completedAt
	}
	if record.CanUndoUntil != nil {
		canUndoUntil := *record.CanUndoUntil
		clone.CanUndoUntil = &canUndoUntil
	}
	return &clone
}
