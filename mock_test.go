package fetch_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowscan/fetch"
	"github.com/flowscan/fetch/layer"
	"github.com/stretchr/testify/require"
)

var errBackendDown = errors.New("backend down")

// create a simple int -> int repository with 2 layers, a in-memory cache and a backend that squares integers
func newSquareMockRepository(t *testing.T, config fetch.Config[int, int]) (*fetch.Repository[int, int], *SquareMockBackend) {
	backend := &SquareMockBackend{fakeDelay: 10 * time.Millisecond}
	memory := layer.NewMemory[int, int](layer.MemoryConfig{Retention: 10 * time.Hour})
	t.Cleanup(memory.Close)
	config.Layers = []fetch.Layer[int, int]{memory, backend}
	repository, err := fetch.New(config)
	require.NoError(t, err)
	return repository, backend
}

// SquareMockBackend squares non-negative integers, negative keys are missing
type SquareMockBackend struct {
	fakeDelay time.Duration
	calls     int32
	mu        sync.Mutex
	batches   [][]int
}

func (s *SquareMockBackend) Identifier() string { return "SquareMockBackend" }

func (s *SquareMockBackend) Get(keys []int) ([]int, []error) {
	atomic.AddInt32(&s.calls, 1)
	s.mu.Lock()
	s.batches = append(s.batches, append([]int(nil), keys...))
	s.mu.Unlock()
	time.Sleep(s.fakeDelay)
	result := make([]int, len(keys))
	errors := make([]error, len(keys))
	for i, v := range keys {
		if v < 0 {
			errors[i] = fetch.NewKeyError(v, s)
			continue
		}
		result[i] = v * v
	}
	return result, errors
}

func (s *SquareMockBackend) Set(keys []int, values []int) []error {
	return nil
}

func (s *SquareMockBackend) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

func (s *SquareMockBackend) Batches() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]int(nil), s.batches...)
}

// FailingBackend fails every key with a transport error
type FailingBackend struct{}

func (FailingBackend) Identifier() string { return "FailingBackend" }

func (FailingBackend) Get(keys []int) ([]int, []error) {
	errors := make([]error, len(keys))
	for i := range errors {
		errors[i] = errBackendDown
	}
	return make([]int, len(keys)), errors
}

func (FailingBackend) Set(keys []int, values []int) []error {
	errors := make([]error, len(keys))
	for i := range errors {
		errors[i] = errBackendDown
	}
	return errors
}

// RecordingLayer stores everything it is given and records the order of set calls
type RecordingLayer struct {
	name  string
	data  *fetch.Map[int, int]
	order *[]string
	mu    *sync.Mutex
}

func newRecordingLayer(name string, order *[]string, mu *sync.Mutex) *RecordingLayer {
	return &RecordingLayer{name: name, data: fetch.NewMap[int, int](), order: order, mu: mu}
}

func (l *RecordingLayer) Identifier() string { return l.name }

func (l *RecordingLayer) Get(keys []int) ([]int, []error) {
	result := make([]int, len(keys))
	errors := make([]error, len(keys))
	for i, k := range keys {
		result[i], errors[i] = l.data.Fetch(k)
	}
	return result, errors
}

func (l *RecordingLayer) Set(keys []int, values []int) []error {
	l.mu.Lock()
	*l.order = append(*l.order, l.name)
	l.mu.Unlock()
	for i, k := range keys {
		l.data.Store(k, values[i])
	}
	return nil
}
