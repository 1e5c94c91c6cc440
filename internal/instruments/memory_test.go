package instruments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/hotscore/internal/contracts"
)

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) contracts.Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_FailWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seed(t, store, "a", 100, 90)

	boom := errors.New("disk full")
	store.FailWrites(boom)

	err := store.ApplyScoreUpdates(ctx, []contracts.ScoreUpdate{{ID: "a", Score: 1, ComputedAt: time.Now()}})
	assert.ErrorIs(t, err, boom)

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, a.HotnessScore)

	store.FailWrites(nil)
	require.NoError(t, store.ApplyScoreUpdates(ctx, []contracts.ScoreUpdate{{ID: "a", Score: 1, ComputedAt: time.Now()}}))
}

func TestMemoryStore_MarkCorrupt(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seed(t, store, "a", 100, 90)

	store.MarkCorrupt("a", errors.New("bad json"))

	page, err := store.FetchScoringCandidates(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Error(t, page[0].DecodeErr)
	assert.Nil(t, page[0].PriceHistory)

	// 가격 교체 시 손상 표시 해제
	require.NoError(t, store.ReplacePriceHistory(ctx, "a", periods(1, 2), time.Now()))
	page, err = store.FetchScoringCandidates(ctx, "", 10)
	require.NoError(t, err)
	assert.NoError(t, page[0].DecodeErr)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seed(t, store, "a", 100, 90)

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	a.PriceHistory[0].AveragePrice = -1
	a.Name = "mutated"

	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.PriceHistory[0].AveragePrice)
	assert.Equal(t, "name-a", again.Name)
}
