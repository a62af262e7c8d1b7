package sharecache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store backed by go-cache. It is the default
// backend; snapshots die with the process, which matches the rest of the
// relay's in-memory state.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates an in-memory snapshot store.
//
// Parameters:
//   - ttl: How long a snapshot stays valid after its last Put
//   - cleanupInterval: Interval at which expired snapshots are purged
//
// Returns:
//   - A new MemoryStore
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(ttl, cleanupInterval),
	}
}

// Put implements Store.
func (m *MemoryStore) Put(ctx context.Context, roomID string, data json.RawMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.cache.Set(roomID, data, cache.DefaultExpiration)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, roomID string) (json.RawMessage, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	val, found := m.cache.Get(roomID)
	if !found {
		return nil, false, nil
	}

	data, ok := val.(json.RawMessage)
	if !ok {
		return nil, false, nil
	}

	return data, true, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, roomID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.cache.Delete(roomID)
	return nil
}
