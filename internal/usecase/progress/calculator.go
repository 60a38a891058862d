package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coinplan/coinplan-backend/internal/domain"
	"github.com/coinplan/coinplan-backend/internal/logging"
	"github.com/coinplan/coinplan-backend/internal/usecase/attribution"
)

// Result represents the computed execution progress for a record
type Result struct {
	// Totals holds each goal's attributed contribution, converted into the
	// goal's native currency
	Totals map[uuid.UUID]decimal.Decimal
	// TotalContributed is the sum of Totals across goals
	TotalContributed decimal.Decimal
	// ProgressPercent is TotalContributed against the frozen snapshot's
	// TotalPlanned, as a percentage
	ProgressPercent decimal.Decimal
	// RateUncertain is set when at least one rate lookup failed and the
	// 1:1 fallback was used; the figure is an estimate
	RateUncertain bool
}

// Calculator orchestrates the attribution engine across all assets relevant
// to an execution record's goal set and aggregates per-goal contribution
// totals in each goal's currency.
type Calculator struct {
	Ledger domain.LedgerRepository
	Assets domain.AssetRepository
	Goals  domain.GoalRepository
	Rates  domain.RateSource

	engine *attribution.Engine
	logger *logging.Logger
}

// NewCalculator creates a new Calculator instance
func NewCalculator(
	ledger domain.LedgerRepository,
	assets domain.AssetRepository,
	goals domain.GoalRepository,
	rates domain.RateSource,
	logger *logging.Logger,
) *Calculator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Calculator{
		Ledger: ledger,
		Assets: assets,
		Goals:  goals,
		Rates:  rates,
		engine: attribution.NewEngine(ledger),
		logger: logger.Named("progress"),
	}
}

// ContributionTotals computes per-goal contribution totals for the record's
// tracking window (record.StartedAt, end], plus the overall progress
// percentage against the record's frozen snapshot.
//
// Logic:
//  1. Find every asset linked to any goal in the record's scope
//  2. Run the attribution engine per asset over the tracking window
//  3. Convert each attributed amount into the goal's currency via the rate
//     source; a failed lookup degrades to a 1:1 fallback and marks the
//     result rate-uncertain
//  4. Sum per goal across assets
//
// A record that is not executing yields a zero result without error; store
// read failures are fatal.
func (c *Calculator) ContributionTotals(ctx context.Context, record *domain.MonthlyExecutionRecord, end time.Time) (*Result, error) {
	result := &Result{
		Totals:           make(map[uuid.UUID]decimal.Decimal, len(record.GoalIDs)),
		TotalContributed: decimal.Zero,
		ProgressPercent:  decimal.Zero,
	}
	for _, goalID := range record.GoalIDs {
		result.Totals[goalID] = decimal.Zero
	}

	if record.Status != domain.ExecutionStatusExecuting || record.StartedAt == nil {
		return result, nil
	}
	start := *record.StartedAt

	goalCurrencies := make(map[uuid.UUID]string, len(record.GoalIDs))
	for _, goalID := range record.GoalIDs {
		goal, err := c.Goals.GetByID(ctx, goalID)
		if err != nil {
			return nil, fmt.Errorf("failed to load goal %s: %w", goalID, err)
		}
		goalCurrencies[goalID] = goal.CurrencyCode
	}

	assetIDs, err := c.Ledger.AssetsLinkedToGoals(ctx, record.GoalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets for goals: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, assetID := range assetIDs {
		assetID := assetID
		g.Go(func() error {
			attributed, err := c.engine.AttributedDelta(gctx, assetID, record.GoalIDs, start, end)
			if err != nil {
				return err
			}

			asset, err := c.Assets.GetByID(gctx, assetID)
			if err != nil {
				return fmt.Errorf("failed to load asset %s: %w", assetID, err)
			}

			for goalID, amount := range attributed {
				if amount.IsZero() {
					continue
				}

				converted := amount
				if asset.CurrencyCode != goalCurrencies[goalID] {
					rate, rateErr := c.Rates.Rate(gctx, asset.CurrencyCode, goalCurrencies[goalID])
					if rateErr != nil {
						// Degraded mode: treat the amount as already in
						// the goal's currency and flag the result.
						c.logger.Warn("rate lookup failed, using 1:1 fallback",
							zap.String("from", asset.CurrencyCode),
							zap.String("to", goalCurrencies[goalID]),
							zap.Error(rateErr),
						)
						mu.Lock()
						result.RateUncertain = true
						mu.Unlock()
					} else {
						converted = amount.Mul(rate)
					}
				}

				mu.Lock()
				result.Totals[goalID] = result.Totals[goalID].Add(converted)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, total := range result.Totals {
		result.TotalContributed = result.TotalContributed.Add(total)
	}

	if record.Snapshot.TotalPlanned.IsPositive() {
		result.ProgressPercent = result.TotalContributed.
			Mul(decimal.NewFromInt(100)).
			Div(record.Snapshot.TotalPlanned)
	}

	return result, nil
}
