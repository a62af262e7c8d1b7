// Package sharecache stores the most recent share payload per room, so a
// member that joins a room with an active presenter can be shown the current
// screen instead of a blank board. Entries are TTL-bounded and the store is
// strictly best-effort: the relay logs failures and keeps broadcasting.
package sharecache

import (
	"context"
	"encoding/json"
)

// Store keeps one snapshot per room, keyed by room identifier.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores data as the room's snapshot, replacing any previous one and
	// refreshing its TTL.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - roomID: The room the snapshot belongs to
	//   - data: The raw share payload as it appeared on the wire
	//
	// Returns:
	//   - An error if the snapshot could not be stored
	Put(ctx context.Context, roomID string, data json.RawMessage) error

	// Get returns the room's snapshot if one is present and not expired.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - roomID: The room to look up
	//
	// Returns:
	//   - The snapshot payload, or nil if absent
	//   - true if a snapshot was found, false otherwise
	//   - An error if the lookup failed
	Get(ctx context.Context, roomID string) (json.RawMessage, bool, error)

	// Delete drops the room's snapshot. Deleting an absent snapshot is not
	// an error.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - roomID: The room whose snapshot to drop
	//
	// Returns:
	//   - An error if the delete failed
	Delete(ctx context.Context, roomID string) error
}
