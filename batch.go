package fetch

import (
	"time"
)

// a batch of keys to be resolved
type batch[TKey comparable, TValue any] struct {
	keys    []TKey
	index   map[TKey]int
	data    []TValue
	errors  []error
	done    []chan struct{} // channels to notify if any of each keys in this batch has been resolved
	closing bool            // flags this batch as closed, no more keys can be added in this batch
}

// keyIndex will return the location of the key in the batch, if its not found
// it will add the key to the batch, if it is the first key in the batch, then the
// batch timer will be started. Must be called with the batcher lock held
func (b *batch[TKey, TValue]) keyIndex(l *Batcher[TKey, TValue], key TKey) int {
	if pos, ok := b.index[key]; ok {
		return pos
	}

	pos := len(b.keys)
	b.keys = append(b.keys, key)
	b.index[key] = pos
	b.done = append(b.done, make(chan struct{}))
	if pos == 0 {
		go b.startTimer(l)
	}

	if l.maxBatch != 0 && pos >= l.maxBatch-1 {
		b.closing = true
		l.pendingBatch = nil
		go b.resolveBatch(l)
	}

	return pos
}

func (b *batch[TKey, TValue]) startTimer(l *Batcher[TKey, TValue]) {
	time.Sleep(l.wait)
	l.mu.Lock()

	// hit a batch limit and are already finalizing this batch
	if b.closing {
		l.mu.Unlock()
		return
	}

	b.closing = true
	l.pendingBatch = nil
	l.mu.Unlock()

	b.resolveBatch(l)
}

func (b *batch[TKey, TValue]) resolveBatch(l *Batcher[TKey, TValue]) {
	b.data = make([]TValue, len(b.keys))
	b.errors = make([]error, len(b.keys))
	l.resolver(b.keys, b.finishKey)
}

func (b *batch[TKey, TValue]) finishKey(index int, value TValue, err error) {
	b.data[index] = value
	b.errors[index] = err
	close(b.done[index])
}
