package progress

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinplan/coinplan-backend/internal/adapter/ratesource"
	"github.com/coinplan/coinplan-backend/internal/adapter/repository/memory"
	"github.com/coinplan/coinplan-backend/internal/domain"
)

type fixture struct {
	store  *memory.Store
	rates  *ratesource.Static
	calc   *Calculator
	start  time.Time
	record *domain.MonthlyExecutionRecord
}

func newFixture(t *testing.T, goalIDs []uuid.UUID, totalPlanned string) *fixture {
	t.Helper()
	store := memory.NewStore()
	rates := ratesource.NewStatic()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	undoUntil := start.Add(24 * time.Hour)
	return &fixture{
		store: store,
		rates: rates,
		calc:  NewCalculator(store, store.Assets(), store.Goals(), rates, nil),
		start: start,
		record: &domain.MonthlyExecutionRecord{
			ID:         uuid.New(),
			MonthLabel: "2025-03",
			Status:     domain.ExecutionStatusExecuting,
			StartedAt:  &start,
			GoalIDs:    goalIDs,
			Snapshot: domain.ExecutionSnapshot{
				TotalPlanned: dec(totalPlanned),
			},
			CanUndoUntil: &undoUntil,
		},
	}
}

func (f *fixture) addAsset(t *testing.T, currency string) uuid.UUID {
	t.Helper()
	asset := &domain.Asset{ID: uuid.New(), Name: "asset-" + currency, CurrencyCode: currency}
	require.NoError(t, f.store.Create(context.Background(), asset))
	return asset.ID
}

func (f *fixture) addGoal(t *testing.T, id uuid.UUID, currency string) {
	t.Helper()
	goal := &domain.Goal{ID: id, Name: "goal", CurrencyCode: currency, TargetAmount: decimal.NewFromInt(10000)}
	require.NoError(t, f.store.Goals().Create(context.Background(), goal))
}

func (f *fixture) deposit(t *testing.T, assetID uuid.UUID, amount string, at time.Time) {
	t.Helper()
	require.NoError(t, f.store.AddTransaction(context.Background(), &domain.Transaction{
		ID: uuid.New(), AssetID: assetID, Amount: dec(amount), Timestamp: at,
	}))
}

func (f *fixture) target(t *testing.T, assetID, goalID uuid.UUID, amount string, at time.Time) {
	t.Helper()
	require.NoError(t, f.store.AppendAllocationHistory(context.Background(), &domain.AllocationHistory{
		ID: uuid.New(), AssetID: assetID, GoalID: goalID, TargetAmount: dec(amount), Timestamp: at,
	}))
}

func TestContributionTotals_CountsOnlyWindowDeposits(t *testing.T) {
	goalA := uuid.New()
	f := newFixture(t, []uuid.UUID{goalA}, "500")
	f.addGoal(t, goalA, "EUR")
	assetID := f.addAsset(t, "EUR")

	// A deposit before tracking started must not count toward progress.
	f.deposit(t, assetID, "100", f.start.Add(-48*time.Hour))
	f.target(t, assetID, goalA, "100", f.start.Add(-48*time.Hour))
	f.target(t, assetID, goalA, "200", f.start.Add(time.Hour))
	f.deposit(t, assetID, "100", f.start.Add(time.Hour))

	result, err := f.calc.ContributionTotals(context.Background(), f.record, f.start.Add(30*24*time.Hour))

	require.NoError(t, err)
	assert.True(t, result.Totals[goalA].Equal(dec("100")), "expected 100, got %s", result.Totals[goalA])
	assert.True(t, result.TotalContributed.Equal(dec("100")))
	assert.True(t, result.ProgressPercent.Equal(dec("20")), "100 of 500 planned is 20%%, got %s", result.ProgressPercent)
	assert.False(t, result.RateUncertain)
}

func TestContributionTotals_ConvertsIntoGoalCurrency(t *testing.T) {
	goalA := uuid.New()
	f := newFixture(t, []uuid.UUID{goalA}, "1000")
	f.addGoal(t, goalA, "EUR")
	assetID := f.addAsset(t, "BTC")
	f.rates.Set("BTC", "EUR", dec("50000"))

	f.target(t, assetID, goalA, "0.01", f.start.Add(time.Hour))
	f.deposit(t, assetID, "0.01", f.start.Add(time.Hour))

	result, err := f.calc.ContributionTotals(context.Background(), f.record, f.start.Add(24*time.Hour))

	require.NoError(t, err)
	assert.True(t, result.Totals[goalA].Equal(dec("500")), "0.01 BTC at 50000 is 500 EUR, got %s", result.Totals[goalA])
	assert.True(t, result.ProgressPercent.Equal(dec("50")))
	assert.False(t, result.RateUncertain)
}

func TestContributionTotals_RateFailureDegradesToFallback(t *testing.T) {
	goalA := uuid.New()
	f := newFixture(t, []uuid.UUID{goalA}, "1000")
	f.addGoal(t, goalA, "EUR")
	assetID := f.addAsset(t, "BTC")
	// no BTC/EUR rate registered

	f.target(t, assetID, goalA, "0.5", f.start.Add(time.Hour))
	f.deposit(t, assetID, "0.5", f.start.Add(time.Hour))

	result, err := f.calc.ContributionTotals(context.Background(), f.record, f.start.Add(24*time.Hour))

	require.NoError(t, err)
	assert.True(t, result.RateUncertain, "a failed rate lookup must flag the result")
	assert.True(t, result.Totals[goalA].Equal(dec("0.5")), "fallback keeps the raw amount, got %s", result.Totals[goalA])
}

func TestContributionTotals_AggregatesAcrossAssets(t *testing.T) {
	goalA := uuid.New()
	f := newFixture(t, []uuid.UUID{goalA}, "300")
	f.addGoal(t, goalA, "EUR")
	assetOne := f.addAsset(t, "EUR")
	assetTwo := f.addAsset(t, "EUR")

	f.target(t, assetOne, goalA, "100", f.start.Add(time.Hour))
	f.deposit(t, assetOne, "100", f.start.Add(time.Hour))
	f.target(t, assetTwo, goalA, "50", f.start.Add(2*time.Hour))
	f.deposit(t, assetTwo, "50", f.start.Add(2*time.Hour))

	result, err := f.calc.ContributionTotals(context.Background(), f.record, f.start.Add(24*time.Hour))

	require.NoError(t, err)
	assert.True(t, result.Totals[goalA].Equal(dec("150")), "expected 150 across both assets, got %s", result.Totals[goalA])
	assert.True(t, result.ProgressPercent.Equal(dec("50")))
}

func TestContributionTotals_NonExecutingRecordYieldsZero(t *testing.T) {
	goalA := uuid.New()
	f := newFixture(t, []uuid.UUID{goalA}, "500")
	f.record.Status = domain.ExecutionStatusDraft
	f.record.StartedAt = nil

	result, err := f.calc.ContributionTotals(context.Background(), f.record, f.start.Add(24*time.Hour))

	require.NoError(t, err)
	assert.True(t, result.TotalContributed.IsZero())
	assert.True(t, result.ProgressPercent.IsZero())
	require.Contains(t, result.Totals, goalA)
	assert.True(t, result.Totals[goalA].IsZero())
}

func TestContributionTotals_ZeroPlannedKeepsPercentZero(t *testing.T) {
	goalA := uuid.New()
	f := newFixture(t, []uuid.UUID{goalA}, "0")
	f.addGoal(t, goalA, "EUR")
	assetID := f.addAsset(t, "EUR")

	f.target(t, assetID, goalA, "100", f.start.Add(time.Hour))
	f.deposit(t, assetID, "100", f.start.Add(time.Hour))

	result, err := f.calc.ContributionTotals(context.Background(), f.record, f.start.Add(24*time.Hour))

	require.NoError(t, err)
	assert.True(t, result.TotalContributed.Equal(dec("100")))
	assert.True(t, result.ProgressPercent.IsZero(), "zero planned never divides, got %s", result.ProgressPercent)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
