package safemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeMap_StoreLoadDelete(t *testing.T) {
	m := NewSafeMap[uint32, string]()
	require.NotNil(t, m)

	t.Run("load missing key returns zero value", func(t *testing.T) {
		v, ok := m.Load(1)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("store then load", func(t *testing.T) {
		m.Store(1, "a")
		v, ok := m.Load(1)
		assert.True(t, ok)
		assert.Equal(t, "a", v)
	})

	t.Run("store overwrites", func(t *testing.T) {
		m.Store(1, "b")
		v, _ := m.Load(1)
		assert.Equal(t, "b", v)
	})

	t.Run("delete removes key", func(t *testing.T) {
		m.Delete(1)
		_, ok := m.Load(1)
		assert.False(t, ok)
	})

	t.Run("delete missing key is a no-op", func(t *testing.T) {
		m.Delete(42)
		assert.Equal(t, 0, m.Len())
	})
}

func TestSafeMap_RangeAndLen(t *testing.T) {
	m := NewSafeMap[int, int]()
	for i := 0; i < 5; i++ {
		m.Store(i, i*i)
	}

	t.Run("len counts entries", func(t *testing.T) {
		assert.Equal(t, 5, m.Len())
	})

	t.Run("range visits every entry", func(t *testing.T) {
		seen := make(map[int]int)
		m.Range(func(k, v int) bool {
			seen[k] = v
			return true
		})
		assert.Len(t, seen, 5)
		assert.Equal(t, 16, seen[4])
	})

	t.Run("range stops when f returns false", func(t *testing.T) {
		count := 0
		m.Range(func(int, int) bool {
			count++
			return count < 3
		})
		assert.Equal(t, 3, count)
	})
}

func TestSafeMap_Concurrent(t *testing.T) {
	m := NewSafeMap[int, int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Store(i, i)
			m.Load(i)
			if i%2 == 0 {
				m.Delete(i)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, m.Len())
}
