package contribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// RecordContributionInput represents the input for recording a contribution
type RecordContributionInput struct {
	GoalID  uuid.UUID
	AssetID uuid.UUID
	Kind    domain.ContributionKind
	// Amount is always positive; Kind determines direction
	Amount decimal.Decimal
	// FromGoalID is the goal losing target ownership; required for
	// reallocations, ignored otherwise
	FromGoalID        *uuid.UUID
	ExecutionRecordID *uuid.UUID
	Note              string
}

// Service records user-facing contributions. A contribution is bookkeeping
// on top of the raw ledger: deposits and withdrawals append the backing
// transaction and adjust the goal's allocation target by the same amount;
// reallocations move target ownership between goals without touching the
// balance.
type Service struct {
	Assets        domain.AssetRepository
	Goals         domain.GoalRepository
	Ledger        domain.LedgerRepository
	Contributions domain.ContributionRepository

	now func() time.Time
}

// NewService creates a new contribution Service instance
func NewService(
	assets domain.AssetRepository,
	goals domain.GoalRepository,
	ledger domain.LedgerRepository,
	contributions domain.ContributionRepository,
) *Service {
	return &Service{
		Assets:        assets,
		Goals:         goals,
		Ledger:        ledger,
		Contributions: contributions,
		now:           time.Now,
	}
}

// RecordContribution validates the input, appends the backing ledger events,
// and creates the contribution entry.
// Logic:
//   - DEPOSIT: transaction +amount, goal target raised by amount
//   - WITHDRAWAL: transaction -amount, goal target lowered by amount
//     (floored at zero)
//   - REALLOCATION: no transaction; FromGoalID's target lowered and GoalID's
//     raised by amount
//
// The allocation history entry shares the transaction's timestamp, so the
// new target is in force for the transaction itself.
func (s *Service) RecordContribution(ctx context.Context, input RecordContributionInput) (*domain.Contribution, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("contribution amount must be positive")
	}

	asset, err := s.Assets.GetByID(ctx, input.AssetID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Goals.GetByID(ctx, input.GoalID); err != nil {
		return nil, err
	}

	now := s.now()

	switch input.Kind {
	case domain.ContributionKindDeposit:
		// Transaction first: if it fails, no target shift has happened and
		// the history stays consistent. The engine orders allocation
		// changes before transactions at equal timestamps, so the shift
		// landing second does not change attribution.
		if err := s.appendTransaction(ctx, asset.ID, input.Amount, now, input.Note); err != nil {
			return nil, err
		}
		if err := s.shiftTarget(ctx, asset.ID, input.GoalID, input.Amount, now); err != nil {
			return nil, err
		}

	case domain.ContributionKindWithdrawal:
		if err := s.appendTransaction(ctx, asset.ID, input.Amount.Neg(), now, input.Note); err != nil {
			return nil, err
		}
		if err := s.shiftTarget(ctx, asset.ID, input.GoalID, input.Amount.Neg(), now); err != nil {
			return nil, err
		}

	case domain.ContributionKindReallocation:
		if input.FromGoalID == nil {
			return nil, errors.New("reallocation requires a source goal")
		}
		if _, err := s.Goals.GetByID(ctx, *input.FromGoalID); err != nil {
			return nil, err
		}
		if err := s.shiftTarget(ctx, asset.ID, *input.FromGoalID, input.Amount.Neg(), now); err != nil {
			return nil, err
		}
		if err := s.shiftTarget(ctx, asset.ID, input.GoalID, input.Amount, now); err != nil {
			return nil, err
		}

	default:
		return nil, errors.New("contribution kind must be DEPOSIT, WITHDRAWAL, or REALLOCATION")
	}

	entry := &domain.Contribution{
		ID:                uuid.New(),
		GoalID:            input.GoalID,
		AssetID:           input.AssetID,
		ExecutionRecordID: input.ExecutionRecordID,
		Kind:              input.Kind,
		Amount:            input.Amount,
		Timestamp:         now,
		Note:              input.Note,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := s.Contributions.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create contribution: %w", err)
	}
	return entry, nil
}

// appendTransaction appends the backing raw transaction for a deposit or
// withdrawal.
func (s *Service) appendTransaction(ctx context.Context, assetID uuid.UUID, amount decimal.Decimal, at time.Time, note string) error {
	tx := &domain.Transaction{
		ID:        uuid.New(),
		AssetID:   assetID,
		Amount:    amount,
		Timestamp: at,
		Note:      note,
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := s.Ledger.AddTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// shiftTarget appends an allocation history entry moving the goal's target
// by delta, floored at zero.
func (s *Service) shiftTarget(ctx context.Context, assetID, goalID uuid.UUID, delta decimal.Decimal, at time.Time) error {
	history, err := s.Ledger.AllocationHistoryFor(ctx, assetID)
	if err != nil {
		return fmt.Errorf("failed to read allocation history: %w", err)
	}
	domain.SortAllocationHistory(history)

	current := decimal.Zero
	for _, entry := range history {
		if entry.GoalID == goalID {
			current = entry.TargetAmount
		}
	}

	target := decimal.Max(decimal.Zero, current.Add(delta))
	if target.Equal(current) {
		return nil
	}

	entry := &domain.AllocationHistory{
		ID:           uuid.New(),
		AssetID:      assetID,
		GoalID:       goalID,
		TargetAmount: target,
		Timestamp:    at,
	}
	if err := s.Ledger.AppendAllocationHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to append allocation history: %w", err)
	}
	return nil
}
