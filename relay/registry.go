// Package relay implements the broadcast relay: the in-memory session
// registry with its single-presenter rule, the per-connection session state
// machine, the room-wide dispatcher, and the TCP server that ties them to
// the wire protocol.
package relay

import (
	"errors"
	"sync"
)

// ErrDuplicateIdentity is returned by Registry.Add when a session with the
// same (clientId, roomId) pair is already registered.
var ErrDuplicateIdentity = errors.New("identity already present in room")

// Registry is the single source of truth for authenticated sessions: which
// sessions exist, which room each belongs to, and who presents in each room.
// Sessions are kept in insertion order and every listing returns a snapshot
// that is safe to iterate while the registry changes.
//
// The registry is safe for concurrent use, but check-then-mutate sequences
// spanning several calls (such as claiming the presenter role) must be
// serialized externally; the server does this with one state mutex.
type Registry struct {
	mu       sync.Mutex
	sessions []*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a session. It fails with ErrDuplicateIdentity if a session
// with the same (clientId, roomId) pair is already present.
//
// Parameters:
//   - s: The session to register; its identity fields must already be set
//
// Returns:
//   - ErrDuplicateIdentity if the identity is taken, nil otherwise
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clientID, roomID := s.ClientID(), s.RoomID()
	for _, existing := range r.sessions {
		if existing.ClientID() == clientID && existing.RoomID() == roomID {
			return ErrDuplicateIdentity
		}
	}

	r.sessions = append(r.sessions, s)
	return nil
}

// Remove deletes a session by reference. Removing a session that is not
// registered is a no-op.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.sessions {
		if existing == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return
		}
	}
}

// ListByRoom returns every session in the given room, in insertion order,
// as a snapshot.
func (r *Registry) ListByRoom(roomID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var members []*Session
	for _, s := range r.sessions {
		if s.RoomID() == roomID {
			members = append(members, s)
		}
	}

	return members
}

// ListAll returns every registered session, in insertion order, as a snapshot.
func (r *Registry) ListAll() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*Session, len(r.sessions))
	copy(all, r.sessions)
	return all
}

// FindPresenter returns the session presenting in the given room, or nil if
// nobody does. At most one can exist per the presenter exclusivity rule.
func (r *Registry) FindPresenter(roomID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.RoomID() == roomID && s.IsPresenter() {
			return s
		}
	}

	return nil
}

// FindByIdentity returns the session with the exact (clientId, roomId) pair,
// or nil if none is registered. Used to reject duplicate logins.
func (r *Registry) FindByIdentity(clientID, roomID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.ClientID() == clientID && s.RoomID() == roomID {
			return s
		}
	}

	return nil
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
