package fetch

import "sync"

// OrderedMap is a map with strict lookups that remembers key insertion order
type OrderedMap[TKey comparable, TValue any] struct {
	data  map[TKey]TValue
	order []TKey
	mu    sync.RWMutex
}

var _ Lookupable[string, any] = (*OrderedMap[string, any])(nil)

// Create a new empty ordered map
func NewOrderedMap[TKey comparable, TValue any]() *OrderedMap[TKey, TValue] {
	return &OrderedMap[TKey, TValue]{
		data: make(map[TKey]TValue),
	}
}

// Fetch returns the value stored for the key, a missing key fails with a *KeyError
// carrying the key and this map
func (m *OrderedMap[TKey, TValue]) Fetch(key TKey) (TValue, error) {
	if v, ok := m.Lookup(key); ok {
		return v, nil
	}
	return zero[TValue](), NewKeyError(key, m)
}

// FetchOr returns the value stored for the key or the given default
func (m *OrderedMap[TKey, TValue]) FetchOr(key TKey, def TValue) TValue {
	if v, ok := m.Lookup(key); ok {
		return v
	}
	return def
}

// FetchFunc returns the value stored for the key, computing it with fn if the key is missing
func (m *OrderedMap[TKey, TValue]) FetchFunc(key TKey, fn func(key TKey) TValue) TValue {
	if v, ok := m.Lookup(key); ok {
		return v
	}
	return fn(key)
}

func (m *OrderedMap[TKey, TValue]) Lookup(key TKey) (TValue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// Store sets the value for the key, an existing key keeps its position
func (m *OrderedMap[TKey, TValue]) Store(key TKey, value TValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		m.order = append(m.order, key)
	}
	m.data[key] = value
}

// Delete removes the key, reporting whether it was present
func (m *OrderedMap[TKey, TValue]) Delete(key TKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return false
	}
	delete(m.data, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *OrderedMap[TKey, TValue]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Keys returns the stored keys in insertion order
func (m *OrderedMap[TKey, TValue]) Keys() []TKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]TKey, len(m.order))
	copy(keys, m.order)
	return keys
}
