package layer

import (
	"sync"
	"time"

	"github.com/flowscan/fetch"
	"github.com/flowscan/fetch/collection/queue"
	"github.com/flowscan/fetch/collection/tuple"
)

// Configuration for the memory data layer
type MemoryConfig struct {
	// The duration of the cached data, set 0 to disable expiration
	Retention time.Duration `yaml:"retention"`

	// How often expired data is removed, defaults to 500ms
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type memoryEntry[TValue any] struct {
	value    TValue
	expireAt time.Time
}

// Memory layer is map-based in-memory cache, it should be used as the first line of cache
// with short data expiration
type Memory[TKey comparable, TValue any] struct {
	config            MemoryConfig
	data              map[TKey]memoryEntry[TValue]
	mu                sync.RWMutex
	invalidationQueue *queue.Queue[tuple.Pair[time.Time, TKey]]
	stop              chan struct{}
	stopOnce          sync.Once
}

var _ fetch.Layer[string, any] = (*Memory[string, any])(nil)

// Unique identifier for this layer used for logging and metric purposes
func (l *Memory[TKey, TValue]) Identifier() string { return "memory" }

// The function that will be used to resolve a set of keys
func (l *Memory[TKey, TValue]) Get(keys []TKey) ([]TValue, []error) {
	result := make([]TValue, len(keys))
	errors := make([]error, len(keys))
	now := time.Now()
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i, k := range keys {
		if entry, ok := l.data[k]; ok && !l.expired(entry, now) {
			result[i] = entry.value
		} else {
			errors[i] = fetch.NewKeyError(k, l)
		}
	}
	return result, errors
}

// The function that will be called for successful resolvers
func (l *Memory[TKey, TValue]) Set(keys []TKey, values []TValue) []error {
	if len(keys) != len(values) {
		return fetch.SetMismatchErrors(len(keys))
	}
	expireAt := time.Now().Add(l.config.Retention)
	l.mu.Lock()
	for i, k := range keys {
		l.data[k] = memoryEntry[TValue]{value: values[i], expireAt: expireAt}
		if l.config.Retention > 0 {
			l.invalidationQueue.Enqueue(tuple.NewPair(expireAt, k))
		}
	}
	l.mu.Unlock()
	return nil
}

// Fetch a single key from this layer
func (l *Memory[TKey, TValue]) Fetch(key TKey) (TValue, error) {
	return fetch.Singlify[TKey, TValue](l.Get)(key)
}

// Number of entries currently held, including expired entries not yet swept
func (l *Memory[TKey, TValue]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.data)
}

// Close stops the background invalidator
func (l *Memory[TKey, TValue]) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Create a new in-memory data layer
func NewMemory[TKey comparable, TValue any](config MemoryConfig) *Memory[TKey, TValue] {
	if config.SweepInterval <= 0 {
		config.SweepInterval = 500 * time.Millisecond
	}
	l := &Memory[TKey, TValue]{
		config:            config,
		data:              make(map[TKey]memoryEntry[TValue]),
		invalidationQueue: queue.NewQueue[tuple.Pair[time.Time, TKey]](1),
		stop:              make(chan struct{}),
	}
	if config.Retention > 0 {
		go l.startInvalidator()
	}
	return l
}

func (l *Memory[TKey, TValue]) expired(entry memoryEntry[TValue], now time.Time) bool {
	return l.config.Retention > 0 && !now.Before(entry.expireAt)
}

// deletes expired records on the cache, the retention is fixed so the queue is ordered by expiration time
func (l *Memory[TKey, TValue]) startInvalidator() {
	ticker := time.NewTicker(l.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}

func (l *Memory[TKey, TValue]) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		next, ok := l.invalidationQueue.Peek()
		if !ok || now.Before(next.V1) {
			return
		}
		l.invalidationQueue.Dequeue()

		// the key might have been set again after this job was queued
		expireAt, key := next.Unpack()
		if entry, ok := l.data[key]; ok && !entry.expireAt.After(expireAt) {
			delete(l.data, key)
		}
	}
}
