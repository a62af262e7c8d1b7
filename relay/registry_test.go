package relay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func authedSession(clientID, name, roomID string) *Session {
	s := &Session{}
	s.authenticate(clientID, name, roomID)
	return s
}

func TestRegistry_Add(t *testing.T) {
	t.Run("adds distinct identities", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Add(authedSession("1", "Alice", "r1")))
		require.NoError(t, r.Add(authedSession("2", "Bob", "r1")))
		require.NoError(t, r.Add(authedSession("1", "Alice", "r2")))
		assert.Equal(t, 3, r.Len())
	})

	t.Run("rejects duplicate identity in same room", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Add(authedSession("1", "Alice", "r1")))
		err := r.Add(authedSession("1", "Impostor", "r1"))
		assert.ErrorIs(t, err, ErrDuplicateIdentity)
		assert.Equal(t, 1, r.Len())
	})
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	a := authedSession("1", "Alice", "r1")
	b := authedSession("2", "Bob", "r1")
	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))

	t.Run("removes by reference", func(t *testing.T) {
		r.Remove(a)
		assert.Equal(t, 1, r.Len())
		assert.Nil(t, r.FindByIdentity("1", "r1"))
		assert.Same(t, b, r.FindByIdentity("2", "r1"))
	})

	t.Run("removing an absent session is a no-op", func(t *testing.T) {
		r.Remove(a)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("removes by identity of the instance, not equality", func(t *testing.T) {
		twin := authedSession("2", "Bob", "r1")
		r.Remove(twin)
		assert.Equal(t, 1, r.Len())
	})
}

func TestRegistry_Listing(t *testing.T) {
	r := NewRegistry()
	a := authedSession("1", "Alice", "r1")
	b := authedSession("2", "Bob", "r2")
	c := authedSession("3", "Carol", "r1")
	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))
	require.NoError(t, r.Add(c))

	t.Run("ListByRoom keeps insertion order", func(t *testing.T) {
		members := r.ListByRoom("r1")
		require.Len(t, members, 2)
		assert.Same(t, a, members[0])
		assert.Same(t, c, members[1])
	})

	t.Run("ListByRoom of unknown room is empty", func(t *testing.T) {
		assert.Empty(t, r.ListByRoom("nope"))
	})

	t.Run("ListAll keeps insertion order", func(t *testing.T) {
		all := r.ListAll()
		require.Len(t, all, 3)
		assert.Same(t, a, all[0])
		assert.Same(t, b, all[1])
		assert.Same(t, c, all[2])
	})

	t.Run("listings are snapshots", func(t *testing.T) {
		members := r.ListByRoom("r1")
		r.Remove(c)
		assert.Len(t, members, 2)
		assert.Len(t, r.ListByRoom("r1"), 1)
		require.NoError(t, r.Add(c))
	})
}

func TestRegistry_FindPresenter(t *testing.T) {
	r := NewRegistry()
	a := authedSession("1", "Alice", "r1")
	b := authedSession("2", "Bob", "r1")
	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))

	t.Run("no presenter yet", func(t *testing.T) {
		assert.Nil(t, r.FindPresenter("r1"))
	})

	t.Run("finds the presenter", func(t *testing.T) {
		b.setPresenter(true)
		assert.Same(t, b, r.FindPresenter("r1"))
	})

	t.Run("presenter in another room does not leak", func(t *testing.T) {
		assert.Nil(t, r.FindPresenter("r2"))
	})
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		i := i
		g.Go(func() error {
			s := authedSession(fmt.Sprintf("c%d", i), "n", fmt.Sprintf("r%d", i%4))
			if err := r.Add(s); err != nil {
				return err
			}
			if i%2 == 0 {
				r.Remove(s)
			}
			return nil
		})
	}

	// Duplicate identities racing; exactly one of each pair may win.
	for i := 0; i < 8; i++ {
		i := i
		g.Go(func() error {
			_ = r.Add(authedSession(fmt.Sprintf("dup%d", i%4), "n", "shared"))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	t.Run("no two sessions share an identity", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, s := range r.ListAll() {
			key := s.ClientID() + "/" + s.RoomID()
			assert.False(t, seen[key], "duplicate identity %s", key)
			seen[key] = true
		}
	})

	t.Run("racing duplicates collapse to one winner each", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			assert.NotNil(t, r.FindByIdentity(fmt.Sprintf("dup%d", i), "shared"))
		}
	})
}
