package logging

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingJSONLStore_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dispatch.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	rec := LogRecord{Timestamp: time.Now(), OrderID: "o1", Outcome: "assigned"}
	for i := 0; i < 100; i++ {
		require.NoError(t, store.Append(context.Background(), rec))
	}
	files, _ := filepath.Glob(path + "*")
	assert.NotEmpty(t, files)
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	now := time.Now()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, LogRecord{Timestamp: now, OrderID: "o1", Outcome: "assigned", DriverID: "d1"}))
	require.NoError(t, store.Append(ctx, LogRecord{Timestamp: now, OrderID: "o2", Outcome: "unassigned"}))

	out, err := store.Query(ctx, LogQuery{})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = store.Query(ctx, LogQuery{Outcome: "unassigned"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "o2", out[0].OrderID)
}
