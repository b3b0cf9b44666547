package benchmark

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, "saas", "doc-1", 7.5))
	require.NoError(t, store.Record(ctx, "saas", "doc-2", 4.0))
	require.NoError(t, store.Record(ctx, "logistics", "doc-3", 9.0))

	snap, err := store.Snapshot(ctx, "saas")
	require.NoError(t, err)
	assert.Equal(t, "saas", snap.ContractType)
	assert.Equal(t, []float64{4.0, 7.5}, snap.Scores, "sorted ascending, type-scoped")

	empty, err := store.Snapshot(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty.Scores)
}

func TestMemoryPopulation_SnapshotIsFrozen(t *testing.T) {
	pop := NewMemoryPopulation()
	pop.Seed("saas", 5, 3)

	ctx := context.Background()
	snap, err := pop.Snapshot(ctx, "saas")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, snap.Scores)

	// Later writes do not bleed into the taken snapshot.
	require.NoError(t, pop.Record(ctx, "saas", "doc-9", 9))
	assert.Equal(t, []float64{3, 5}, snap.Scores)

	next, err := pop.Snapshot(ctx, "saas")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5, 9}, next.Scores)
}
