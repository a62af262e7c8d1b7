package sharecache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put then get returns the snapshot", func(t *testing.T) {
		store := NewMemoryStore(time.Minute, time.Minute)
		require.NoError(t, store.Put(ctx, "r1", json.RawMessage(`{"x":1}`)))

		data, found, err := store.Get(ctx, "r1")
		require.NoError(t, err)
		require.True(t, found)
		assert.JSONEq(t, `{"x":1}`, string(data))
	})

	t.Run("get misses an unknown room", func(t *testing.T) {
		store := NewMemoryStore(time.Minute, time.Minute)
		data, found, err := store.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, data)
	})

	t.Run("put overwrites the previous snapshot", func(t *testing.T) {
		store := NewMemoryStore(time.Minute, time.Minute)
		require.NoError(t, store.Put(ctx, "r1", json.RawMessage(`{"x":1}`)))
		require.NoError(t, store.Put(ctx, "r1", json.RawMessage(`{"x":2}`)))

		data, found, err := store.Get(ctx, "r1")
		require.NoError(t, err)
		require.True(t, found)
		assert.JSONEq(t, `{"x":2}`, string(data))
	})

	t.Run("delete removes the snapshot", func(t *testing.T) {
		store := NewMemoryStore(time.Minute, time.Minute)
		require.NoError(t, store.Put(ctx, "r1", json.RawMessage(`{"x":1}`)))
		require.NoError(t, store.Delete(ctx, "r1"))

		_, found, err := store.Get(ctx, "r1")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete of an unknown room is a no-op", func(t *testing.T) {
		store := NewMemoryStore(time.Minute, time.Minute)
		assert.NoError(t, store.Delete(ctx, "absent"))
	})

	t.Run("snapshots expire after the ttl", func(t *testing.T) {
		store := NewMemoryStore(20*time.Millisecond, 10*time.Millisecond)
		require.NoError(t, store.Put(ctx, "r1", json.RawMessage(`{"x":1}`)))

		assert.Eventually(t, func() bool {
			_, found, err := store.Get(ctx, "r1")
			return err == nil && !found
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("cancelled context is reported", func(t *testing.T) {
		store := NewMemoryStore(time.Minute, time.Minute)
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, store.Put(cancelled, "r1", json.RawMessage(`1`)), context.Canceled)
		_, _, err := store.Get(cancelled, "r1")
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, store.Delete(cancelled, "r1"), context.Canceled)
	})
}
