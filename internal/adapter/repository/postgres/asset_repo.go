package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coinplan/coinplan-backend/internal/domain"
)

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{db: db}
}

// GetByID retrieves an asset by its ID
func (r *assetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	query := `
		SELECT id, name, currency_code, address
		FROM assets
		WHERE id = $1
	`

	var asset domain.Asset
	var address sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID,
		&asset.Name,
		&asset.CurrencyCode,
		&address,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}

	if address.Valid {
		asset.Address = &address.String
	}
	return &asset, nil
}

// Create creates a new asset
func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (id, name, currency_code, address)
		VALUES ($1, $2, $3, $4)
	`

	var address sql.NullString
	if asset.Address != nil {
		address = sql.NullString{String: *asset.Address, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query, asset.ID, asset.Name, asset.CurrencyCode, address); err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

// List retrieves all assets
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT id, name, currency_code, address
		FROM assets
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		var asset domain.Asset
		var address sql.NullString

		if err := rows.Scan(&asset.ID, &asset.Name, &asset.CurrencyCode, &address); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		if address.Valid {
			asset.Address = &address.String
		}
		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}

	return assets, nil
}
