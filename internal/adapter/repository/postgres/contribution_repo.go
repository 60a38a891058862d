package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// contributionRepository implements domain.ContributionRepository
type contributionRepository struct {
	db *DB
}

// NewContributionRepository creates a new contribution repository
func NewContributionRepository(db *DB) domain.ContributionRepository {
	return &contributionRepository{db: db}
}

// Create creates a new contribution entry
func (r *contributionRepository) Create(ctx context.Context, contribution *domain.Contribution) error {
	query := `
		INSERT INTO contributions (id, goal_id, asset_id, execution_record_id, kind, amount, timestamp, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var recordID any
	if contribution.ExecutionRecordID != nil {
		recordID = *contribution.ExecutionRecordID
	}

	if _, err := r.db.ExecContext(ctx, query,
		contribution.ID,
		contribution.GoalID,
		contribution.AssetID,
		recordID,
		string(contribution.Kind),
		contribution.Amount.String(),
		contribution.Timestamp,
		contribution.Note,
	); err != nil {
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	return nil
}

// ListForGoal retrieves all contributions for a goal, newest first
func (r *contributionRepository) ListForGoal(ctx context.Context, goalID uuid.UUID) ([]domain.Contribution, error) {
	query := `
		SELECT id, goal_id, asset_id, execution_record_id, kind, amount, timestamp, note
		FROM contributions
		WHERE goal_id = $1
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, query, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer rows.Close()

	var contributions []domain.Contribution
	for rows.Next() {
		var contribution domain.Contribution
		var recordID sql.NullString
		var kind string
		var amountStr string

		if err := rows.Scan(
			&contribution.ID,
			&contribution.GoalID,
			&contribution.AssetID,
			&recordID,
			&kind,
			&amountStr,
			&contribution.Timestamp,
			&contribution.Note,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}

		contribution.Kind = domain.ContributionKind(kind)
		contribution.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse contribution amount: %w", err)
		}
		if recordID.Valid {
			parsed, err := uuid.Parse(recordID.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse execution record id: %w", err)
			}
			contribution.ExecutionRecordID = &parsed
		}

		contributions = append(contributions, contribution)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}

	return contributions, nil
}
