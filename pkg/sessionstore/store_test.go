package sessionstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	base := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, Entry{SessionID: "a", RunID: "run-a", Dir: "/s/a", ManifestPath: "/s/a/manifest.json", State: "completed", StartedAt: base, EndedAt: base.Add(time.Minute), DurationMs: 60000, Channels: 2, Files: 5}))
	require.NoError(t, store.Record(ctx, Entry{SessionID: "b", RunID: "run-b", Dir: "/s/b", ManifestPath: "/s/b/manifest.json", State: "recording", StartedAt: base.Add(time.Hour)}))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].SessionID)
	assert.True(t, entries[0].EndedAt.IsZero())
	assert.Equal(t, "a", entries[1].SessionID)
	assert.True(t, base.Add(time.Minute).Equal(entries[1].EndedAt))
	assert.Equal(t, 5, entries[1].Files)
}

func TestRecordUpserts(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	started := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)
	entry := Entry{SessionID: "a", RunID: "run", Dir: "/s", ManifestPath: "/s/manifest.json", State: "recording", StartedAt: started}
	require.NoError(t, store.Record(ctx, entry))

	entry.State = "failed"
	entry.Error = "pointer: display disconnected"
	entry.EndedAt = started.Add(time.Second)
	require.NoError(t, store.Record(ctx, entry))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].State)
	assert.Equal(t, "pointer: display disconnected", entries[0].Error)
}

func TestRecordRequiresSessionID(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	assert.Error(t, store.Record(ctx, Entry{}))
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, Entry{SessionID: "a", RunID: "r", Dir: "d", ManifestPath: "m", State: "completed", StartedAt: time.Now()}))
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
