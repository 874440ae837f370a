package tlru

import "container/heap"

// Wrapper for elements inside a priority queue, every data is paired with a priority value
type Item[T any] struct {
	priority int64
	index    int
	Value    T
}

// Make a new priority queue item from the given value and priority
func NewItem[T any](value T, priority int64) Item[T] {
	return Item[T]{
		priority: priority,
		Value:    value,
	}
}

// Priority of the item, lower values are popped first
func (i Item[T]) Priority() int64 { return i.priority }

// Check if the value inside the priority queue item is empty or invalid
func (i Item[T]) Empty() bool {
	return i.index == -1
}

// Priority queue of type T implementation, the item with the lowest priority is at the head
type PriorityQueue[T any] struct {
	items queue[T]
}

// Get the number of items in the priority queue
func (q *PriorityQueue[T]) Len() int {
	return q.items.Len()
}

// Push an entry to the queue
func (q *PriorityQueue[T]) Push(item Item[T]) {
	heap.Push(&q.items, item)
}

// Pop removes the entry with the lowest priority, returns an empty item if the queue is empty
func (q *PriorityQueue[T]) Pop() Item[T] {
	if q.items.Len() == 0 {
		return Item[T]{index: -1}
	}
	return heap.Pop(&q.items).(Item[T])
}

// Peek get the entry with the lowest priority without removing it from the collection
func (q *PriorityQueue[T]) Peek() Item[T] {
	if len(q.items) > 0 {
		return q.items[0]
	}
	return Item[T]{
		index: -1,
	}
}

// Create a new priority queue of type T
func NewQueue[T any]() *PriorityQueue[T] {
	q := &PriorityQueue[T]{items: make(queue[T], 0)}
	heap.Init(&q.items)
	return q
}

// queue implements heap.Interface
type queue[T any] []Item[T]

func (q queue[T]) Len() int {
	return len(q)
}

func (q queue[T]) Less(i, j int) bool {
	return q[i].priority < q[j].priority
}

func (q queue[T]) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue[T]) Push(x any) {
	item := x.(Item[T])
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *queue[T]) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	item.index = -1
	*q = old[:n-1]
	return item
}
