// Package safemap provides a type-safe concurrent map built on sync.Map,
// used by the relay server to track live connection sessions.
package safemap

import "sync"

// SafeMap is a concurrent map safe for use by multiple goroutines. Keys must
// be comparable; values may be any type. It must not be copied after first use.
type SafeMap[K comparable, V any] struct {
	m sync.Map
}

// NewSafeMap returns a new empty SafeMap.
func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{}
}

// Store sets the value for key k, overwriting any existing value.
func (m *SafeMap[K, V]) Store(k K, v V) {
	m.m.Store(k, v)
}

// Load returns the value for key k and whether the key was present. A missing
// key yields the zero value of V and false.
func (m *SafeMap[K, V]) Load(k K) (V, bool) {
	v, found := m.m.Load(k)
	if !found {
		var zero V
		return zero, false
	}

	return v.(V), true
}

// Delete removes the entry for key k; a no-op if the key is absent.
func (m *SafeMap[K, V]) Delete(k K) {
	m.m.Delete(k)
}

// Range calls f sequentially for each entry. If f returns false, iteration
// stops. The behavior is undefined if f modifies the map.
func (m *SafeMap[K, V]) Range(f func(k K, v V) bool) {
	m.m.Range(func(k, v interface{}) bool {
		return f(k.(K), v.(V))
	})
}

// Len returns the number of entries by iterating over them all.
func (m *SafeMap[K, V]) Len() int {
	length := 0
	m.Range(func(K, V) bool {
		length++
		return true
	})

	return length
}
