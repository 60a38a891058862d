package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// planRepository implements domain.PlanRepository
type planRepository struct {
	db *DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *DB) domain.PlanRepository {
	return &planRepository{db: db}
}

// GetByMonth retrieves the plan for a month label
func (r *planRepository) GetByMonth(ctx context.Context, monthLabel string) (*domain.MonthlyPlan, error) {
	query := `
		SELECT p.id, e.goal_id, e.required_monthly
		FROM monthly_plans p
		JOIN monthly_plan_entries e ON e.plan_id = p.id
		WHERE p.month_label = $1
	`

	rows, err := r.db.QueryContext(ctx, query, monthLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}
	defer rows.Close()

	plan := &domain.MonthlyPlan{MonthLabel: monthLabel}
	for rows.Next() {
		var entry domain.PlanEntry
		var requiredStr string

		if err := rows.Scan(&plan.ID, &entry.GoalID, &requiredStr); err != nil {
			return nil, fmt.Errorf("failed to scan plan entry: %w", err)
		}

		entry.RequiredMonthly, err = decimal.NewFromString(requiredStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse planned amount: %w", err)
		}
		plan.Entries = append(plan.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plan entries: %w", err)
	}

	if len(plan.Entries) == 0 {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}

// Save creates or replaces the plan for its month in a single database
// transaction
func (r *planRepository) Save(ctx context.Context, plan *domain.MonthlyPlan) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	upsertPlanQuery := `
		INSERT INTO monthly_plans (id, month_label)
		VALUES ($1, $2)
		ON CONFLICT (month_label) DO UPDATE SET id = EXCLUDED.id
	`
	if _, err := dbTx.ExecContext(ctx, upsertPlanQuery, plan.ID, plan.MonthLabel); err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM monthly_plan_entries WHERE plan_id = $1`, plan.ID); err != nil {
		return fmt.Errorf("failed to clear plan entries: %w", err)
	}

	insertEntryQuery := `
		INSERT INTO monthly_plan_entries (plan_id, goal_id, required_monthly)
		VALUES ($1, $2, $3)
	`
	for _, entry := range plan.Entries {
		if _, err := dbTx.ExecContext(ctx, insertEntryQuery,
			plan.ID,
			entry.GoalID,
			entry.RequiredMonthly.String(),
		); err != nil {
			return fmt.Errorf("failed to insert plan entry: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
