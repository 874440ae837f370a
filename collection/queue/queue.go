package queue

import (
	"sync"
)

// Queue is a FIFO queue backed by a growable ring buffer, safe for concurrent use
type Queue[T any] struct {
	count int // Number of items inside this queue
	head  int // queue head index in the array
	tail  int // queue tail index in the array
	cap   int // capacity of the queue
	arr   []T
	mu    sync.RWMutex
}

// creates a new queue with the given capacity
func NewQueue[T any](cap int) *Queue[T] {
	cap = zeroFallback(cap, 1)
	b := &Queue[T]{}
	b.arr = make([]T, cap)
	b.cap = cap
	return b
}

// Get the number of items in the buffer
func (b *Queue[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Write a new data into the queue
func (b *Queue[T]) Enqueue(data T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == b.cap {
		b.grow()
	}
	b.arr[b.head] = data
	b.head = wrap(b.head+1, b.cap)
	b.count++
}

// Retrieve the earliest data from the queue, false if the queue is empty
func (b *Queue[T]) Dequeue() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var zero T
	if b.count == 0 {
		return zero, false
	}
	data := b.arr[b.tail]
	b.arr[b.tail] = zero
	b.tail = wrap(b.tail+1, b.cap)
	b.count--
	return data, true
}

// Peek the earliest data in the queue without removing it from the queue, false if the queue is empty
func (b *Queue[T]) Peek() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.arr[b.tail], true
}

// grow the array that backs the queue, must be called when the queue is full
func (b *Queue[T]) grow() {
	newCap := growCap(b.cap)
	newArr := make([]T, newCap)

	// copy all data from the previous queue to the new one
	cursor := b.tail
	for i := 0; i < b.count; i++ {
		newArr[i] = b.arr[cursor]
		cursor = wrap(cursor+1, b.cap)
	}

	b.arr = newArr
	b.cap = newCap
	b.tail = 0
	b.head = b.count
}

func growCap(prev int) int {
	if prev < 1024 {
		return 2 * prev
	}
	return int(float64(prev) * 1.25)
}

func wrap(n int, cap int) int {
	if n < 0 {
		return (cap - ((n * -1) % cap)) % cap
	}
	return n % cap
}

func zeroFallback[T comparable](v T, d T) T {
	var zeroValue T
	if v == zeroValue {
		return d
	}
	return v
}
