package fetch

import (
	"sync"
	"time"
)

// Batcher collects keys requested around the same time and resolves them together
type Batcher[TKey comparable, TValue any] struct {
	// the resolver for the batched requests
	resolver func(keys []TKey, finishKey func(index int, value TValue, err error))

	// how long to wait before sending a batch
	wait time.Duration

	// this will limit the maximum number of keys to send in one batch, 0 = no limit
	maxBatch int

	// the current batch. keys will continue to be collected until timeout is hit,
	// then everything will be sent to the resolver and out to the listeners
	pendingBatch *batch[TKey, TValue]

	// mutex to prevent races
	mu sync.Mutex
}

func newBatcher[TKey comparable, TValue any](
	config BatcherConfig,
	resolver func(keys []TKey, finishKey func(index int, value TValue, err error)),
) *Batcher[TKey, TValue] {
	return &Batcher[TKey, TValue]{
		resolver: resolver,
		wait:     config.Wait,
		maxBatch: config.MaxBatch,
	}
}

// Load a value by key, batching will be applied automatically
func (l *Batcher[TKey, TValue]) Load(key TKey) (TValue, error) {
	return l.LoadThunk(key)()
}

// LoadThunk returns a function that when called will block waiting for the value.
// This method should be used if you want one goroutine to make requests to many
// different keys without blocking until the thunk is called.
func (l *Batcher[TKey, TValue]) LoadThunk(key TKey) func() (TValue, error) {
	l.mu.Lock()
	if l.pendingBatch == nil {
		l.pendingBatch = &batch[TKey, TValue]{index: make(map[TKey]int)}
	}
	b := l.pendingBatch
	pos := b.keyIndex(l, key)
	done := b.done[pos]
	l.mu.Unlock()

	return func() (TValue, error) {
		<-done
		err := b.errors[pos]
		// callers sharing a slot each get their own lookup failure
		if receiver, ok := ReceiverOf[TKey](err); ok {
			err = NewKeyError(key, receiver)
		}
		return b.data[pos], err
	}
}

// LoadAll fetches many keys at once. It will be broken into appropriate sized
// sub batches depending on how the batcher is configured
func (l *Batcher[TKey, TValue]) LoadAll(keys []TKey) ([]TValue, []error) {
	return l.LoadAllThunk(keys)()
}

// LoadAllThunk returns a function that when called will block waiting for the values
func (l *Batcher[TKey, TValue]) LoadAllThunk(keys []TKey) func() ([]TValue, []error) {
	thunks := make([]func() (TValue, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(key)
	}
	return func() ([]TValue, []error) {
		values := make([]TValue, len(keys))
		errors := make([]error, len(keys))
		for i, thunk := range thunks {
			values[i], errors[i] = thunk()
		}
		return values, errors
	}
}
