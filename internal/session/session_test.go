package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamu-dev/chamu/internal/domain"
)

func TestMemorySaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Minute)

	ranking := domain.PreferenceRanking{1: "critA", 2: "critB"}
	require.NoError(t, store.SaveRanking(ctx, "tok", ranking))

	got, err := store.Ranking(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, ranking, got)

	// The stored copy is independent of the caller's map.
	ranking[1] = "mutated"
	got, err = store.Ranking(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "critA", got[1])
}

func TestMemoryUnknownToken(t *testing.T) {
	store := NewMemory(time.Minute)
	_, err := store.Ranking(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Minute)

	require.NoError(t, store.SaveRanking(ctx, "tok", domain.PreferenceRanking{1: "crit"}))
	require.NoError(t, store.Clear(ctx, "tok"))

	_, err := store.Ranking(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Millisecond)

	require.NoError(t, store.SaveRanking(ctx, "tok", domain.PreferenceRanking{1: "crit"}))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Ranking(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRankingWireEncoding(t *testing.T) {
	ranking := domain.PreferenceRanking{1: "critA", 2: "critB", 10: "critC"}

	decoded, err := decodeRanking(encodeRanking(ranking))
	require.NoError(t, err)
	assert.Equal(t, ranking, decoded)

	_, err = decodeRanking(map[string]string{"first": "critA"})
	assert.Error(t, err)
}
