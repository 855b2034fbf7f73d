package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/storage"
)

func TestDecisionStore_RoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(pool)
	ctx := context.Background()

	state := domain.NewTokenDecisionState("tok1", "pair1", 1000)
	require.NoError(t, store.Create(ctx, state))

	got, err := store.Get(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionUnknown, got.Decision)
	assert.Equal(t, domain.StateCollecting, got.State)
	assert.Equal(t, domain.SegmentUnknown, got.SegmentLabels[0])
	assert.Empty(t, got.CheckpointsSeen)
}

func TestDecisionStore_UpdatePersistsAllFields(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(pool)
	ctx := context.Background()

	state := domain.NewTokenDecisionState("tok1", "pair1", 1000)
	require.NoError(t, store.Create(ctx, state))

	entryIter := int64(120)
	entryPrice := 0.0004
	planIter := int64(165)
	planPrice := 0.00056

	state.Decision = domain.DecisionBuy
	state.State = domain.StateEntered
	state.SegmentLabels = [3]domain.SegmentLabel{domain.SegmentGood, domain.SegmentGood, domain.SegmentBest}
	state.EntryIteration = &entryIter
	state.EntryPrice = &entryPrice
	state.PlanExitIteration = &planIter
	state.PlanExitPrice = &planPrice
	state.PlanHit = true
	state.ForecastSuppressed = true
	state.MarkCheckpoint(60)
	state.MarkCheckpoint(90)
	state.UpdatedAtMs = 2000

	require.NoError(t, store.Update(ctx, state))

	got, err := store.Get(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionBuy, got.Decision)
	assert.Equal(t, domain.StateEntered, got.State)
	assert.Equal(t, domain.SegmentBest, got.SegmentLabels[2])
	require.NotNil(t, got.EntryIteration)
	assert.Equal(t, int64(120), *got.EntryIteration)
	require.NotNil(t, got.PlanExitPrice)
	assert.InDelta(t, 0.00056, *got.PlanExitPrice, 1e-12)
	assert.True(t, got.PlanHit)
	assert.True(t, got.ForecastSuppressed)
	assert.True(t, got.SeenCheckpoint(60))
	assert.True(t, got.SeenCheckpoint(90))
	assert.False(t, got.SeenCheckpoint(120))
}

func TestDecisionStore_CreateIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(pool)
	ctx := context.Background()

	state := domain.NewTokenDecisionState("tok1", "pair1", 1000)
	require.NoError(t, store.Create(ctx, state))

	state.Decision = domain.DecisionNot
	state.Frozen = true
	require.NoError(t, store.Update(ctx, state))

	// Re-creating the same token must not reset the stored row.
	require.NoError(t, store.Create(ctx, domain.NewTokenDecisionState("tok1", "pair1", 9999)))

	got, err := store.Get(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNot, got.Decision)
	assert.True(t, got.Frozen)
}

func TestDecisionStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Update(ctx, domain.NewTokenDecisionState("missing", "p", 0))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDecisionStore_ListActive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDecisionStore(pool)
	ctx := context.Background()

	a := domain.NewTokenDecisionState("a", "pa", 1000)
	b := domain.NewTokenDecisionState("b", "pb", 2000)
	c := domain.NewTokenDecisionState("c", "pc", 3000)
	for _, s := range []*domain.TokenDecisionState{a, b, c} {
		require.NoError(t, store.Create(ctx, s))
	}

	b.Archive = true
	require.NoError(t, store.Update(ctx, b))

	active, err := store.ListActive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].TokenID)
	assert.Equal(t, "c", active[1].TokenID)

	limited, err := store.ListActive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "a", limited[0].TokenID)
}
