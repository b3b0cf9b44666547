package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySink_DeduplicatesByIdempotencyKey(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, Envelope{ID: "a", Type: "x", IdempotencyKey: "k1"}))
	require.NoError(t, sink.Append(ctx, Envelope{ID: "b", Type: "x", IdempotencyKey: "k1"}))
	require.NoError(t, sink.Append(ctx, Envelope{ID: "c", Type: "y", IdempotencyKey: "k2"}))

	got := sink.Events()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID, "first write wins for a duplicated key")
	assert.Equal(t, "c", got[1].ID)
}

func TestMemorySink_EmptyKeyNeverDeduplicated(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, Envelope{ID: "a"}))
	require.NoError(t, sink.Append(ctx, Envelope{ID: "b"}))

	assert.Len(t, sink.Events(), 2)
}

func TestMemorySink_EventsReturnsCopy(t *testing.T) {
	sink := NewMemorySink()
	require.NoError(t, sink.Append(context.Background(), Envelope{ID: "a", IdempotencyKey: "k"}))

	got := sink.Events()
	got[0].ID = "mutated"

	assert.Equal(t, "a", sink.Events()[0].ID)
}

func TestNoOpEventSink(t *testing.T) {
	assert.NoError(t, NewNoOpEventSink().Append(context.Background(), Envelope{ID: "a"}))
}
