package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// executionRecordRepository implements domain.ExecutionRecordRepository
type executionRecordRepository struct {
	db *DB
}

// NewExecutionRecordRepository creates a new execution record repository
func NewExecutionRecordRepository(db *DB) domain.ExecutionRecordRepository {
	return &executionRecordRepository{db: db}
}

// GetByMonth retrieves the execution record for a month label
func (r *executionRecordRepository) GetByMonth(ctx context.Context, monthLabel string) (*domain.MonthlyExecutionRecord, error) {
	query := `
		SELECT id, month_label, status, started_at, completed_at, goal_ids, total_planned, can_undo_until
		FROM execution_records
		WHERE month_label = $1
	`

	var record domain.MonthlyExecutionRecord
	var status string
	var startedAt, completedAt, canUndoUntil sql.NullTime
	var goalIDs pq.StringArray
	var totalPlannedStr string

	err := r.db.QueryRowContext(ctx, query, monthLabel).Scan(
		&record.ID,
		&record.MonthLabel,
		&status,
		&startedAt,
		&completedAt,
		&goalIDs,
		&totalPlannedStr,
		&canUndoUntil,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query execution record: %w", err)
	}

	record.Status = domain.ExecutionStatus(status)
	if startedAt.Valid {
		record.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}
	if canUndoUntil.Valid {
		record.CanUndoUntil = &canUndoUntil.Time
	}
	for _, raw := range goalIDs {
		goalID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse goal id: %w", err)
		}
		record.GoalIDs = append(record.GoalIDs, goalID)
	}

	record.Snapshot.TotalPlanned, err = decimal.NewFromString(totalPlannedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total planned: %w", err)
	}

	if err := r.loadGoalSnapshots(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create creates a new execution record with its frozen goal snapshots
func (r *executionRecordRepository) Create(ctx context.Context, record *domain.MonthlyExecutionRecord) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	insertQuery := `
		INSERT INTO execution_records (id, month_label, status, started_at, completed_at, goal_ids, total_planned, can_undo_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := dbTx.ExecContext(ctx, insertQuery,
		record.ID,
		record.MonthLabel,
		string(record.Status),
		nullTime(record.StartedAt),
		nullTime(record.CompletedAt),
		goalIDStrings(record),
		record.Snapshot.TotalPlanned.String(),
		nullTime(record.CanUndoUntil),
	); err != nil {
		return fmt.Errorf("failed to insert execution record: %w", err)
	}

	if err := r.writeGoalSnapshots(ctx, dbTx, record); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update persists changes to an existing execution record, replacing its
// goal snapshots
func (r *executionRecordRepository) Update(ctx context.Context, record *domain.MonthlyExecutionRecord) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	updateQuery := `
		UPDATE execution_records
		SET status = $2, started_at = $3, completed_at = $4, goal_ids = $5, total_planned = $6, can_undo_until = $7
		WHERE id = $1
	`
	result, err := dbTx.ExecContext(ctx, updateQuery,
		record.ID,
		string(record.Status),
		nullTime(record.StartedAt),
		nullTime(record.CompletedAt),
		goalIDStrings(record),
		record.Snapshot.TotalPlanned.String(),
		nullTime(record.CanUndoUntil),
	)
	if err != nil {
		return fmt.Errorf("failed to update execution record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrRecordNotFound
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM execution_goal_snapshots WHERE record_id = $1`, record.ID); err != nil {
		return fmt.Errorf("failed to clear goal snapshots: %w", err)
	}
	if err := r.writeGoalSnapshots(ctx, dbTx, record); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *executionRecordRepository) loadGoalSnapshots(ctx context.Context, record *domain.MonthlyExecutionRecord) error {
	query := `
		SELECT goal_id, planned_amount
		FROM execution_goal_snapshots
		WHERE record_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, record.ID)
	if err != nil {
		return fmt.Errorf("failed to query goal snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var snapshot domain.GoalSnapshot
		var plannedStr string

		if err := rows.Scan(&snapshot.GoalID, &plannedStr); err != nil {
			return fmt.Errorf("failed to scan goal snapshot: %w", err)
		}

		snapshot.PlannedAmount, err = decimal.NewFromString(plannedStr)
		if err != nil {
			return fmt.Errorf("failed to parse planned amount: %w", err)
		}
		record.Snapshot.GoalSnapshots = append(record.Snapshot.GoalSnapshots, snapshot)
	}
	return rows.Err()
}

func (r *executionRecordRepository) writeGoalSnapshots(ctx context.Context, dbTx *sql.Tx, record *domain.MonthlyExecutionRecord) error {
	insertQuery := `
		INSERT INTO execution_goal_snapshots (record_id, goal_id, planned_amount)
		VALUES ($1, $2, $3)
	`
	for _, snapshot := range record.Snapshot.GoalSnapshots {
		if _, err := dbTx.ExecContext(ctx, insertQuery,
			record.ID,
			snapshot.GoalID,
			snapshot.PlannedAmount.String(),
		); err != nil {
			return fmt.Errorf("failed to insert goal snapshot: %w", err)
		}
	}
	return nil
}

func goalIDStrings(record *domain.MonthlyExecutionRecord) pq.StringArray {
	ids := make(pq.StringArray, 0, len(record.GoalIDs))
	for _, goalID := range record.GoalIDs {
		ids = append(ids, goalID.String())
	}
	return ids
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
