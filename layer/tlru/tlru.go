package tlru

import (
	"sync"
	"time"

	"github.com/flowscan/fetch"
)

type entry[TValue any] struct {
	value    TValue
	expireAt int64
	seq      uint64
}

// an implementation of Time-Aware Least Recent Used in-memory cache
type Cache[TKey comparable, TValue any] struct {
	data              map[TKey]entry[TValue]
	invalidationQueue *PriorityQueue[tracked[TKey]]
	config            Config
	counter           uint64
	mu                sync.Mutex
	now               func() time.Time
}

var _ fetch.Layer[string, any] = (*Cache[string, any])(nil)

// create a new TLRU cache
func NewCache[TKey comparable, TValue any](config Config) (*Cache[TKey, TValue], error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	c := &Cache[TKey, TValue]{
		data:              make(map[TKey]entry[TValue]),
		invalidationQueue: NewQueue[tracked[TKey]](),
		config:            config,
		now:               time.Now,
	}

	return c, nil
}

// Unique identifier for this layer used for logging and metric purposes
func (c *Cache[TKey, TValue]) Identifier() string { return "tlru" }

// get values from the given keys, expired entries are reported as missing
func (c *Cache[TKey, TValue]) Get(keys []TKey) ([]TValue, []error) {
	result := make([]TValue, len(keys))
	errors := make([]error, len(keys))
	now := c.now().UnixNano()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, k := range keys {
		if e, ok := c.data[k]; ok && now < e.expireAt {
			result[i] = e.value
		} else {
			errors[i] = fetch.NewKeyError(k, c)
		}
	}
	return result, errors
}

// set values for the given keys
func (c *Cache[TKey, TValue]) Set(keys []TKey, values []TValue) []error {
	if len(keys) != len(values) {
		return fetch.SetMismatchErrors(len(keys))
	}
	now := c.now()
	expireAt := now.Add(c.config.DefaultTTL).UnixNano()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, k := range keys {
		c.counter++
		c.data[k] = entry[TValue]{value: values[i], expireAt: expireAt, seq: c.counter}
		c.invalidationQueue.Push(NewItem(tracked[TKey]{key: k, seq: c.counter}, expireAt))
	}
	c.evict(now.UnixNano())
	return nil
}

// Number of live entries in the cache
func (c *Cache[TKey, TValue]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// drop expired entries, then the entries closest to expiration until the item limit is satisfied
func (c *Cache[TKey, TValue]) evict(now int64) {
	for c.invalidationQueue.Len() > 0 {
		head := c.invalidationQueue.Peek()
		overLimit := c.config.MaxItems > 0 && len(c.data) > c.config.MaxItems
		if head.Priority() > now && !overLimit {
			return
		}
		c.invalidationQueue.Pop()

		// skip stale jobs for keys that have been set again
		if e, ok := c.data[head.Value.key]; ok && e.seq == head.Value.seq {
			delete(c.data, head.Value.key)
		}
	}
}

type tracked[TKey comparable] struct {
	key TKey
	seq uint64
}
