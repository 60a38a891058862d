package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// ledgerRepository implements domain.LedgerRepository
type ledgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *DB) domain.LedgerRepository {
	return &ledgerRepository{db: db}
}

// AddTransaction appends a balance-affecting event to an asset's ledger
func (r *ledgerRepository) AddTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, asset_id, amount, timestamp, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING sequence
	`

	err := r.db.QueryRowContext(ctx, query,
		tx.ID,
		tx.AssetID,
		tx.Amount.String(),
		tx.Timestamp,
		tx.Note,
	).Scan(&tx.Sequence)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// TransactionsFor retrieves all transactions for an asset ordered by
// timestamp then insertion sequence
func (r *ledgerRepository) TransactionsFor(ctx context.Context, assetID uuid.UUID) ([]domain.Transaction, error) {
	query := `
		SELECT id, asset_id, amount, timestamp, sequence, note
		FROM transactions
		WHERE asset_id = $1
		ORDER BY timestamp ASC, sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var amountStr string

		if err := rows.Scan(&tx.ID, &tx.AssetID, &amountStr, &tx.Timestamp, &tx.Sequence, &tx.Note); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction amount: %w", err)
		}

		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

// AppendAllocationHistory appends an ownership-affecting event
func (r *ledgerRepository) AppendAllocationHistory(ctx context.Context, entry *domain.AllocationHistory) error {
	query := `
		INSERT INTO allocation_history (id, asset_id, goal_id, target_amount, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING sequence
	`

	err := r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.AssetID,
		entry.GoalID,
		entry.TargetAmount.String(),
		entry.Timestamp,
	).Scan(&entry.Sequence)
	if err != nil {
		return fmt.Errorf("failed to insert allocation history entry: %w", err)
	}

	return nil
}

// AllocationHistoryFor retrieves all allocation history entries for an asset
// ordered by timestamp then insertion sequence
func (r *ledgerRepository) AllocationHistoryFor(ctx context.Context, assetID uuid.UUID) ([]domain.AllocationHistory, error) {
	query := `
		SELECT id, asset_id, goal_id, target_amount, timestamp, sequence
		FROM allocation_history
		WHERE asset_id = $1
		ORDER BY timestamp ASC, sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation history: %w", err)
	}
	defer rows.Close()

	var entries []domain.AllocationHistory
	for rows.Next() {
		var entry domain.AllocationHistory
		var targetStr string

		if err := rows.Scan(&entry.ID, &entry.AssetID, &entry.GoalID, &targetStr, &entry.Timestamp, &entry.Sequence); err != nil {
			return nil, fmt.Errorf("failed to scan allocation history entry: %w", err)
		}

		entry.TargetAmount, err = decimal.NewFromString(targetStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse allocation target amount: %w", err)
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocation history: %w", err)
	}

	return entries, nil
}

// AssetsLinkedToGoals returns the IDs of assets with allocation history or
// current allocations touching any of the given goals
func (r *ledgerRepository) AssetsLinkedToGoals(ctx context.Context, goalIDs []uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]string, 0, len(goalIDs))
	for _, goalID := range goalIDs {
		ids = append(ids, goalID.String())
	}

	query := `
		SELECT DISTINCT asset_id FROM allocation_history WHERE goal_id = ANY($1)
		UNION
		SELECT DISTINCT asset_id FROM asset_allocations WHERE goal_id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query assets linked to goals: %w", err)
	}
	defer rows.Close()

	var assetIDs []uuid.UUID
	for rows.Next() {
		var assetID uuid.UUID
		if err := rows.Scan(&assetID); err != nil {
			return nil, fmt.Errorf("failed to scan asset id: %w", err)
		}
		assetIDs = append(assetIDs, assetID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate asset ids: %w", err)
	}

	return assetIDs, nil
}

// CurrentAllocationsFor retrieves the cached current-state allocations for
// an asset
func (r *ledgerRepository) CurrentAllocationsFor(ctx context.Context, assetID uuid.UUID) ([]domain.AssetAllocation, error) {
	query := `
		SELECT id, asset_id, goal_id, amount
		FROM asset_allocations
		WHERE asset_id = $1
	`
	return r.queryAllocations(ctx, query, assetID)
}

// AllocationsForGoal retrieves the cached current-state allocations
// referencing a goal
func (r *ledgerRepository) AllocationsForGoal(ctx context.Context, goalID uuid.UUID) ([]domain.AssetAllocation, error) {
	query := `
		SELECT id, asset_id, goal_id, amount
		FROM asset_allocations
		WHERE goal_id = $1
	`
	return r.queryAllocations(ctx, query, goalID)
}

// ReplaceCurrentAllocations replaces the cached allocations for an asset in
// a single database transaction
func (r *ledgerRepository) ReplaceCurrentAllocations(ctx context.Context, assetID uuid.UUID, allocations []domain.AssetAllocation) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM asset_allocations WHERE asset_id = $1`, assetID); err != nil {
		return fmt.Errorf("failed to clear current allocations: %w", err)
	}

	insertQuery := `
		INSERT INTO asset_allocations (id, asset_id, goal_id, amount)
		VALUES ($1, $2, $3, $4)
	`
	for _, allocation := range allocations {
		if _, err := dbTx.ExecContext(ctx, insertQuery,
			allocation.ID,
			allocation.AssetID,
			allocation.GoalID,
			allocation.Amount.String(),
		); err != nil {
			return fmt.Errorf("failed to insert current allocation: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *ledgerRepository) queryAllocations(ctx context.Context, query string, arg any) ([]domain.AssetAllocation, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query current allocations: %w", err)
	}
	defer rows.Close()

	var allocations []domain.AssetAllocation
	for rows.Next() {
		var allocation domain.AssetAllocation
		var amountStr string

		if err := rows.Scan(&allocation.ID, &allocation.AssetID, &allocation.GoalID, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan current allocation: %w", err)
		}

		allocation.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse allocation amount: %w", err)
		}

		allocations = append(allocations, allocation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate current allocations: %w", err)
	}

	return allocations, nil
}
