package snapshotter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coinplan/coinplan-backend/internal/domain"
	"github.com/coinplan/coinplan-backend/internal/usecase/attribution"
)

// Service refreshes the AssetAllocation current-state cache from the
// authoritative AllocationHistory timeline. The cache is a UI-read
// optimization only; attribution never consumes it.
type Service struct {
	Assets domain.AssetRepository
	Ledger domain.LedgerRepository

	resolver *attribution.Resolver
	now      func() time.Time
}

// NewService creates a new snapshotter Service instance
func NewService(assets domain.AssetRepository, ledger domain.LedgerRepository) *Service {
	return &Service{
		Assets:   assets,
		Ledger:   ledger,
		resolver: attribution.NewResolver(ledger),
		now:      time.Now,
	}
}

// SyncAsset recomputes the cached allocations for one asset from its
// allocation history. Goals whose latest target is zero are dropped from the
// cache.
func (s *Service) SyncAsset(ctx context.Context, assetID uuid.UUID) error {
	targets, err := s.resolver.AllocationsAt(ctx, assetID, s.now())
	if err != nil {
		return err
	}

	allocations := make([]domain.AssetAllocation, 0, len(targets))
	for goalID, target := range targets {
		if !target.IsPositive() {
			continue
		}
		allocations = append(allocations, domain.AssetAllocation{
			ID:      uuid.New(),
			AssetID: assetID,
			GoalID:  goalID,
			Amount:  target,
		})
	}

	if err := s.Ledger.ReplaceCurrentAllocations(ctx, assetID, allocations); err != nil {
		return fmt.Errorf("failed to replace current allocations: %w", err)
	}
	return nil
}

// SyncAll refreshes the cache for every asset
func (s *Service) SyncAll(ctx context.Context) error {
	assets, err := s.Assets.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}
	for _, asset := range assets {
		if err := s.SyncAsset(ctx, asset.ID); err != nil {
			return err
		}
	}
	return nil
}
