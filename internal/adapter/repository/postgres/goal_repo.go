package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// goalRepository implements domain.GoalRepository
type goalRepository struct {
	db *DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *DB) domain.GoalRepository {
	return &goalRepository{db: db}
}

// GetByID retrieves a goal by its ID
func (r *goalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	query := `
		SELECT id, name, currency_code, target_amount, deadline
		FROM goals
		WHERE id = $1
	`

	goal, err := scanGoal(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query goal: %w", err)
	}
	return goal, nil
}

// Create creates a new goal
func (r *goalRepository) Create(ctx context.Context, goal *domain.Goal) error {
	query := `
		INSERT INTO goals (id, name, currency_code, target_amount, deadline)
		VALUES ($1, $2, $3, $4, $5)
	`

	var deadline sql.NullTime
	if goal.Deadline != nil {
		deadline = sql.NullTime{Time: *goal.Deadline, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query,
		goal.ID,
		goal.Name,
		goal.CurrencyCode,
		goal.TargetAmount.String(),
		deadline,
	); err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	return nil
}

// List retrieves all goals
func (r *goalRepository) List(ctx context.Context) ([]*domain.Goal, error) {
	query := `
		SELECT id, name, currency_code, target_amount, deadline
		FROM goals
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []*domain.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}

	return goals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var goal domain.Goal
	var targetStr string
	var deadline sql.NullTime

	if err := row.Scan(&goal.ID, &goal.Name, &goal.CurrencyCode, &targetStr, &deadline); err != nil {
		return nil, err
	}

	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse goal target amount: %w", err)
	}
	goal.TargetAmount = target

	if deadline.Valid {
		goal.Deadline = &deadline.Time
	}
	return &goal, nil
}
