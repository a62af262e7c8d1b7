package sharecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces snapshot keys so the relay can share a redis database
// with other tenants.
const keyPrefix = "blank:share:"

// redisStore is a Store backed by redis. It lets a deployment keep share
// snapshots outside the relay process, so a freshly restarted relay can
// still serve the last frame to late joiners while a presenter reconnects.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a redis-backed snapshot store.
//
// Parameters:
//   - client: A connected redis client
//   - ttl: How long a snapshot stays valid after its last Put
//
// Returns:
//   - A Store writing through the given client
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func key(roomID string) string {
	return keyPrefix + roomID
}

// Put implements Store.
func (r *redisStore) Put(ctx context.Context, roomID string, data json.RawMessage) error {
	if err := r.client.Set(ctx, key(roomID), []byte(data), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}

	return nil
}

// Get implements Store.
func (r *redisStore) Get(ctx context.Context, roomID string) (json.RawMessage, bool, error) {
	val, err := r.client.Get(ctx, key(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get snapshot: %w", err)
	}

	return json.RawMessage(val), true, nil
}

// Delete implements Store.
func (r *redisStore) Delete(ctx context.Context, roomID string) error {
	if err := r.client.Del(ctx, key(roomID)).Err(); err != nil {
		return fmt.Errorf("redis delete snapshot: %w", err)
	}

	return nil
}
