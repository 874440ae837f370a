package fetch

import "sync"

// Map is a hash map with strict lookups, safe for concurrent use
type Map[TKey comparable, TValue any] struct {
	data map[TKey]TValue
	mu   sync.RWMutex
}

var _ Lookupable[string, any] = (*Map[string, any])(nil)

// Create a new empty map
func NewMap[TKey comparable, TValue any]() *Map[TKey, TValue] {
	return &Map[TKey, TValue]{
		data: make(map[TKey]TValue),
	}
}

// Fetch returns the value stored for the key, a missing key fails with a *KeyError
// carrying the key and this map
func (m *Map[TKey, TValue]) Fetch(key TKey) (TValue, error) {
	if v, ok := m.Lookup(key); ok {
		return v, nil
	}
	return zero[TValue](), NewKeyError(key, m)
}

// FetchOr returns the value stored for the key or the given default
func (m *Map[TKey, TValue]) FetchOr(key TKey, def TValue) TValue {
	if v, ok := m.Lookup(key); ok {
		return v
	}
	return def
}

// FetchFunc returns the value stored for the key, computing it with fn if the key is missing.
// The computed value is not stored.
func (m *Map[TKey, TValue]) FetchFunc(key TKey, fn func(key TKey) TValue) TValue {
	if v, ok := m.Lookup(key); ok {
		return v
	}
	return fn(key)
}

// Lookup returns the value stored for the key and whether it was present
func (m *Map[TKey, TValue]) Lookup(key TKey) (TValue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Map[TKey, TValue]) Store(key TKey, value TValue) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

// Delete removes the key, reporting whether it was present
func (m *Map[TKey, TValue]) Delete(key TKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	delete(m.data, key)
	return ok
}

func (m *Map[TKey, TValue]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Keys returns the stored keys in no particular order
func (m *Map[TKey, TValue]) Keys() []TKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]TKey, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
