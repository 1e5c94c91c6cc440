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

// periods builds a newest-first history from average prices
func periods(avgs ...float64) []contracts.PricePeriod {
	out := make([]contracts.PricePeriod, len(avgs))
	for i, avg := range avgs {
		out[i] = contracts.PricePeriod{
			Label:           "p",
			StartOffsetDays: i * 7,
			EndOffsetDays:   (i + 1) * 7,
			AveragePrice:    avg,
			HighPrice:       avg,
			LowPrice:        avg,
		}
	}
	return out
}

func seed(t *testing.T, store contracts.Store, id string, avgs ...float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, id, "name-"+id))
	if len(avgs) > 0 {
		require.NoError(t, store.ReplacePriceHistory(ctx, id, periods(avgs...), time.Now()))
	}
}

func candidateIDs(cs []contracts.ScoreCandidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

// runStoreSuite checks the behavior every contracts.Store backend must share
func runStoreSuite(t *testing.T, newStore func(t *testing.T) contracts.Store) {
	t.Run("candidates are ordered and paged by id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for _, id := range []string{"c", "a", "e", "b", "d"} {
			seed(t, store, id, 100, 110)
		}

		page, err := store.FetchScoringCandidates(ctx, "", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, candidateIDs(page))

		page, err = store.FetchScoringCandidates(ctx, "b", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "d", "e"}, candidateIDs(page))

		page, err = store.FetchScoringCandidates(ctx, "e", 10)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("deleted and empty instruments are not candidates", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		seed(t, store, "live", 100, 90)
		seed(t, store, "empty")
		seed(t, store, "gone", 100, 90)
		require.NoError(t, store.SoftDelete(ctx, "gone"))

		page, err := store.FetchScoringCandidates(ctx, "", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"live"}, candidateIDs(page))
		assert.Len(t, page[0].PriceHistory, 2)
	})

	t.Run("score updates are applied together", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Millisecond)

		seed(t, store, "a", 100, 90)
		seed(t, store, "b", 100, 90)

		err := store.ApplyScoreUpdates(ctx, []contracts.ScoreUpdate{
			{ID: "a", Score: 42, ComputedAt: now},
			{ID: "b", Score: 7, ComputedAt: now},
		})
		require.NoError(t, err)

		a, err := store.Get(ctx, "a")
		require.NoError(t, err)
		require.NotNil(t, a.HotnessScore)
		assert.Equal(t, 42, *a.HotnessScore)
		require.NotNil(t, a.ScoreComputedAt)
		assert.WithinDuration(t, now, *a.ScoreComputedAt, time.Millisecond)
	})

	t.Run("unknown id rolls back the whole update set", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		seed(t, store, "a", 100, 90)

		err := store.ApplyScoreUpdates(ctx, []contracts.ScoreUpdate{
			{ID: "a", Score: 42, ComputedAt: time.Now()},
			{ID: "missing", Score: 1, ComputedAt: time.Now()},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, contracts.ErrNotFound))

		a, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, a.HotnessScore)
	})

	t.Run("price refresh clears the stored score", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		seed(t, store, "a", 100, 90)
		require.NoError(t, store.ApplyScoreUpdates(ctx, []contracts.ScoreUpdate{
			{ID: "a", Score: 55, ComputedAt: time.Now()},
		}))

		require.NoError(t, store.ReplacePriceHistory(ctx, "a", periods(80, 90, 100), time.Now()))

		a, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, a.HotnessScore)
		assert.Nil(t, a.ScoreComputedAt)
		assert.Len(t, a.PriceHistory, 3)
		assert.NotNil(t, a.PriceUpdatedAt)
	})

	t.Run("missing instruments report not found", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, contracts.ErrNotFound)
		assert.ErrorIs(t, store.ReplacePriceHistory(ctx, "nope", periods(1, 2), time.Now()), contracts.ErrNotFound)
		assert.ErrorIs(t, store.SoftDelete(ctx, "nope"), contracts.ErrNotFound)
	})

	t.Run("upsert keeps name when empty and revives deleted rows", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		seed(t, store, "a", 100, 90)
		require.NoError(t, store.Upsert(ctx, "a", ""))

		a, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "name-a", a.Name)

		require.NoError(t, store.SoftDelete(ctx, "a"))
		_, err = store.Get(ctx, "a")
		assert.ErrorIs(t, err, contracts.ErrNotFound)

		require.NoError(t, store.Upsert(ctx, "a", "renamed"))
		a, err = store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "renamed", a.Name)
	})

	t.Run("ranking orders by score then id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		for _, id := range []string{"a", "b", "c", "d"} {
			seed(t, store, id, 100, 90)
		}
		require.NoError(t, store.ApplyScoreUpdates(ctx, []contracts.ScoreUpdate{
			{ID: "a", Score: 10, ComputedAt: now},
			{ID: "b", Score: 80, ComputedAt: now},
			{ID: "c", Score: 80, ComputedAt: now},
		}))

		top, err := store.TopScored(ctx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "b", top[0].ID)
		assert.Equal(t, "c", top[1].ID)
		assert.Equal(t, 80, top[0].HotnessScore)

		top, err = store.TopScored(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, top, 3)
	})
}
