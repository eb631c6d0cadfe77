package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brdwizard/internal/records"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Upsert(ctx, "alice", records.Record{ID: "1", Fields: records.Fields{"title": "A"}, LastUpdated: 1}))
	require.NoError(t, s.Upsert(ctx, "alice", records.Record{ID: "2", Fields: records.Fields{"title": "B"}, LastUpdated: 2}))
	require.NoError(t, s.Upsert(ctx, "bob", records.Record{ID: "3", LastUpdated: 3}))
	assert.Error(t, s.Upsert(ctx, "alice", records.Record{}))

	got, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "alice", got[0].OwnerID)

	got[0].Fields["title"] = "mutated"
	again, _ := s.List(ctx, "alice")
	assert.Equal(t, "B", again[0].Title(), "List returns copies")

	require.NoError(t, s.Delete(ctx, "alice", "2"))
	assert.Equal(t, 1, s.Len("alice"))
	assert.Equal(t, 1, s.Len("bob"))
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	_, err := s.List(ctx, "alice")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Upsert(ctx, "alice", records.Record{ID: "x"}), context.Canceled)
}
