package attribution

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinplan/coinplan-backend/internal/adapter/repository/memory"
)

func TestAllocationsAt_LatestEntryAtOrBeforeWins(t *testing.T) {
	store := memory.NewStore()
	resolver := NewResolver(store)

	assetID := uuid.New()
	goalA := uuid.New()
	goalB := uuid.New()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	setTarget(t, store, assetID, goalA, "1.0", base)
	setTarget(t, store, assetID, goalA, "2.5", base.Add(2*time.Hour))
	setTarget(t, store, assetID, goalB, "0.3", base.Add(3*time.Hour))

	targets, err := resolver.AllocationsAt(context.Background(), assetID, base.Add(2*time.Hour))

	require.NoError(t, err)
	assert.True(t, targets[goalA].Equal(dec("2.5")), "entry at the exact instant should be in force")
	_, present := targets[goalB]
	assert.False(t, present, "goal B has no entry yet at this instant")
}

func TestAllocationsAt_SameTimestampResolvedByInsertionOrder(t *testing.T) {
	store := memory.NewStore()
	resolver := NewResolver(store)

	assetID := uuid.New()
	goalA := uuid.New()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	setTarget(t, store, assetID, goalA, "1.0", at)
	setTarget(t, store, assetID, goalA, "4.0", at)

	targets, err := resolver.AllocationsAt(context.Background(), assetID, at)

	require.NoError(t, err)
	assert.True(t, targets[goalA].Equal(dec("4.0")), "later insertion should win a timestamp tie")
}

func TestAllocationsAt_EmptyHistory(t *testing.T) {
	store := memory.NewStore()
	resolver := NewResolver(store)

	targets, err := resolver.AllocationsAt(context.Background(), uuid.New(), time.Now())

	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestBalanceAt_SumsAtOrBefore(t *testing.T) {
	store := memory.NewStore()
	resolver := NewResolver(store)

	assetID := uuid.New()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	addTx(t, store, assetID, "2.0", base)
	addTx(t, store, assetID, "-0.5", base.Add(time.Hour))
	addTx(t, store, assetID, "10.0", base.Add(2*time.Hour))

	balance, err := resolver.BalanceAt(context.Background(), assetID, base.Add(time.Hour))

	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("1.5")), "expected 1.5, got %s", balance)
}

func TestBalanceAt_CanGoNegative(t *testing.T) {
	store := memory.NewStore()
	resolver := NewResolver(store)

	assetID := uuid.New()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	addTx(t, store, assetID, "1.0", base)
	addTx(t, store, assetID, "-3.0", base.Add(time.Hour))

	balance, err := resolver.BalanceAt(context.Background(), assetID, base.Add(2*time.Hour))

	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("-2.0")), "balance is not clamped, got %s", balance)
}
