package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coinplan/coinplan-backend/internal/domain"
	"github.com/coinplan/coinplan-backend/internal/logging"
)

// DefaultUndoGraceWindow bounds how long a forward transition stays undoable
// unless configured otherwise.
const DefaultUndoGraceWindow = 24 * time.Hour

// Service governs the lifecycle of monthly execution records:
// draft -> executing -> closed, with bounded-window undo of both forward
// transitions. All mutations for a given month are serialized through a
// per-month lock.
type Service struct {
	Records domain.ExecutionRecordRepository
	Plans   domain.PlanRepository
	Ledger  domain.LedgerRepository

	grace  time.Duration
	locks  *monthLocks
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a new lifecycle Service instance.
// grace is the undo grace window; zero or negative falls back to
// DefaultUndoGraceWindow.
func NewService(
	records domain.ExecutionRecordRepository,
	plans domain.PlanRepository,
	ledger domain.LedgerRepository,
	grace time.Duration,
	logger *logging.Logger,
) *Service {
	if grace <= 0 {
		grace = DefaultUndoGraceWindow
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		Records: records,
		Plans:   plans,
		Ledger:  ledger,
		grace:   grace,
		locks:   newMonthLocks(),
		logger:  logger.Named("execution"),
		now:     time.Now,
	}
}

// StartTracking commits the month's plan into an executing record.
// Logic:
//  1. Reject when a record for the month already exists and is not a draft
//  2. Freeze an ExecutionSnapshot from the current plan
//  3. Set status EXECUTING, startedAt = now, canUndoUntil = now + grace
//  4. Seed baseline allocation history rows so attribution has targets in
//     force at the window start (idempotent: rows are appended only when the
//     target actually changes)
//
// Returns ErrRecordAlreadyExists when the month is already tracked.
func (s *Service) StartTracking(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error) {
	if err := domain.ValidateMonthLabel(monthLabel); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(monthLabel)
	defer unlock()

	existing, err := s.Records.GetByMonth(ctx, monthLabel)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load execution record: %w", err)
	}
	if existing != nil && existing.Status != domain.ExecutionStatusDraft {
		return nil, domain.ErrRecordAlreadyExists
	}

	plan, err := s.Plans.GetByMonth(ctx, monthLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan for %s: %w", monthLabel, err)
	}

	now := s.now()
	undoUntil := now.Add(s.grace)

	goalIDs := make([]uuid.UUID, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		goalIDs = append(goalIDs, entry.GoalID)
	}

	record := existing
	if record == nil {
		record = &domain.MonthlyExecutionRecord{
			ID:         uuid.New(),
			MonthLabel: monthLabel,
		}
	}
	record.Status = domain.ExecutionStatusExecuting
	record.StartedAt = &now
	record.CompletedAt = nil
	record.GoalIDs = goalIDs
	record.Snapshot = domain.NewExecutionSnapshot(plan)
	record.CanUndoUntil = &undoUntil

	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.seedBaseline(ctx, record); err != nil {
		return nil, err
	}

	if existing == nil {
		err = s.Records.Create(ctx, record)
	} else {
		err = s.Records.Update(ctx, record)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist execution record: %w", err)
	}

	s.logger.Info("tracking started",
		zap.String("month", monthLabel),
		zap.Int("goals", len(goalIDs)),
		zap.String("total_planned", record.Snapshot.TotalPlanned.String()),
	)
	return record, nil
}

// MarkComplete closes an executing record. Partial progress is explicitly
// allowed; completion does not require 100%.
func (s *Service) MarkComplete(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error) {
	unlock := s.locks.lock(monthLabel)
	defer unlock()

	record, err := s.Records.GetByMonth(ctx, monthLabel)
	if err != nil {
		return nil, err
	}
	if record.Status != domain.ExecutionStatusExecuting {
		return nil, domain.ErrInvalidTransition
	}

	now := s.now()
	undoUntil := now.Add(s.grace)
	record.Status = domain.ExecutionStatusClosed
	record.CompletedAt = &now
	record.CanUndoUntil = &undoUntil

	if err := s.Records.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist execution record: %w", err)
	}

	s.logger.Info("tracking completed", zap.String("month", monthLabel))
	return record, nil
}

// UndoStartTracking reverts an executing record to draft. Permitted only
// while now < canUndoUntil; afterwards it fails with ErrUndoExpired.
func (s *Service) UndoStartTracking(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error) {
	unlock := s.locks.lock(monthLabel)
	defer unlock()

	record, err := s.Records.GetByMonth(ctx, monthLabel)
	if err != nil {
		return nil, err
	}
	if record.Status != domain.ExecutionStatusExecuting {
		return nil, domain.ErrInvalidTransition
	}
	if !record.CanUndo(s.now()) {
		return nil, domain.ErrUndoExpired
	}

	record.Status = domain.ExecutionStatusDraft
	record.StartedAt = nil
	record.CanUndoUntil = nil

	if err := s.Records.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist execution record: %w", err)
	}

	s.logger.Info("tracking start undone", zap.String("month", monthLabel))
	return record, nil
}

// UndoCompletion reverts a closed record back to executing. Permitted only
// while now < canUndoUntil. After an undone completion the original start is
// no longer undoable: canUndoUntil is cleared.
func (s *Service) UndoCompletion(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error) {
	unlock := s.locks.lock(monthLabel)
	defer unlock()

	record, err := s.Records.GetByMonth(ctx, monthLabel)
	if err != nil {
		return nil, err
	}
	if record.Status != domain.ExecutionStatusClosed {
		return nil, domain.ErrInvalidTransition
	}
	if !record.CanUndo(s.now()) {
		return nil, domain.ErrUndoExpired
	}

	record.Status = domain.ExecutionStatusExecuting
	record.CompletedAt = nil
	record.CanUndoUntil = nil

	if err := s.Records.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist execution record: %w", err)
	}

	s.logger.Info("completion undone", zap.String("month", monthLabel))
	return record, nil
}

// seedBaseline ensures each (asset, goal) pair in the record's scope has an
// allocation history entry, so the attribution engine sees targets in force
// at the window start. The history is authoritative and the current-state
// cache may lag behind it, so a pair with any history entry at all is left
// untouched; only pairs whose target exists solely in the cache get a
// baseline row, carrying the cached amount at StartedAt. Repeated
// start/undo cycles therefore produce exactly one baseline row.
func (s *Service) seedBaseline(ctx context.Context, record *domain.MonthlyExecutionRecord) error {
	historyByAsset := make(map[uuid.UUID][]domain.AllocationHistory)

	for _, goalID := range record.GoalIDs {
		allocations, err := s.Ledger.AllocationsForGoal(ctx, goalID)
		if err != nil {
			return fmt.Errorf("failed to load allocations for goal %s: %w", goalID, err)
		}

		for _, allocation := range allocations {
			history, ok := historyByAsset[allocation.AssetID]
			if !ok {
				history, err = s.Ledger.AllocationHistoryFor(ctx, allocation.AssetID)
				if err != nil {
					return fmt.Errorf("failed to load allocation history: %w", err)
				}
				historyByAsset[allocation.AssetID] = history
			}

			if hasHistoryEntry(history, goalID) {
				continue
			}

			entry := &domain.AllocationHistory{
				ID:           uuid.New(),
				AssetID:      allocation.AssetID,
				GoalID:       goalID,
				TargetAmount: allocation.Amount,
				Timestamp:    *record.StartedAt,
			}
			if err := s.Ledger.AppendAllocationHistory(ctx, entry); err != nil {
				return fmt.Errorf("failed to seed baseline allocation: %w", err)
			}
			historyByAsset[allocation.AssetID] = append(historyByAsset[allocation.AssetID], *entry)
		}
	}
	return nil
}

// hasHistoryEntry reports whether the goal has any allocation history entry
// for the asset.
func hasHistoryEntry(history []domain.AllocationHistory, goalID uuid.UUID) bool {
	for _, entry := range history {
		if entry.GoalID == goalID {
			return true
		}
	}
	return false
}
