package fetch_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flowscan/fetch"
	"github.com/flowscan/fetch/layer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepository(t *testing.T) {
	_, err := fetch.New(fetch.Config[int, int]{})
	assert.ErrorIs(t, err, fetch.ErrNoLayers)

	repository, _ := newSquareMockRepository(t, fetch.Config[int, int]{Identifier: "squares"})
	assert.Equal(t, "squares", repository.Identifier())
}

func TestLoad(t *testing.T) {
	repository, _ := newSquareMockRepository(t, fetch.Config[int, int]{})
	repository.LoadAll([]int{1, 3, 5})
	repository.LoadAll([]int{1, 2, 3, 4, 5})
	repository.LoadAll([]int{2, 6, 4, 8, 9})
	repository.LoadAll([]int{6, 7, 8, 9, 0})
	r, errs := repository.LoadAll([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.Equal(t, []error{nil, nil, nil, nil, nil, nil, nil, nil, nil, nil}, errs)
	assert.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, r)
}

func TestFetchMissingKey(t *testing.T) {
	repository, _ := newSquareMockRepository(t, fetch.Config[int, int]{})

	v, err := repository.Fetch(-4)
	assert.Equal(t, 0, v)
	var keyErr *fetch.KeyError[int]
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, -4, keyErr.Key())
	assert.Same(t, repository, keyErr.Receiver())

	v, err = repository.FetchOr(-4, 100)
	assert.NoError(t, err)
	assert.Equal(t, 100, v)

	v, err = repository.FetchOr(4, 100)
	assert.NoError(t, err)
	assert.Equal(t, 16, v)
}

func TestFetchBackendError(t *testing.T) {
	repository, err := fetch.New(fetch.Config[int, int]{
		Layers: []fetch.Layer[int, int]{
			layer.NewMemory[int, int](layer.MemoryConfig{}),
			FailingBackend{},
		},
	})
	require.NoError(t, err)

	_, err = repository.Fetch(1)
	assert.ErrorIs(t, err, errBackendDown)
	assert.False(t, fetch.IsKeyError(err))

	_, err = repository.FetchOr(1, 5)
	assert.ErrorIs(t, err, errBackendDown)
}

func TestPartialError(t *testing.T) {
	repository, _ := newSquareMockRepository(t, fetch.Config[int, int]{})
	values, errs := repository.LoadAll([]int{2, -2, 3, -3})
	assert.Equal(t, []int{4, 0, 9, 0}, values)
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[2])
	for _, i := range []int{1, 3} {
		receiver, ok := fetch.ReceiverOf[int](errs[i])
		assert.True(t, ok)
		assert.Same(t, repository, receiver)
	}
}

func TestPrimeEarlierLayers(t *testing.T) {
	memory := layer.NewMemory[int, int](layer.MemoryConfig{Retention: time.Hour})
	t.Cleanup(memory.Close)
	backend := &SquareMockBackend{}
	repository, err := fetch.New(fetch.Config[int, int]{
		Layers: []fetch.Layer[int, int]{memory, backend},
	})
	require.NoError(t, err)

	v, err := repository.Fetch(7)
	require.NoError(t, err)
	assert.Equal(t, 49, v)

	assert.Eventually(t, func() bool {
		v, err := memory.Fetch(7)
		return err == nil && v == 49
	}, time.Second, 10*time.Millisecond)

	v, err = repository.Fetch(7)
	require.NoError(t, err)
	assert.Equal(t, 49, v)
	assert.Equal(t, 1, backend.Calls(), "the second fetch should be served by the memory layer")
}

func TestBatch(t *testing.T) {
	repository, backend := newSquareMockRepository(t, fetch.Config[int, int]{
		Batcher: &fetch.BatcherConfig{Wait: 20 * time.Millisecond},
	})

	n := 200
	wg := sync.WaitGroup{}
	wg.Add(n)
	for i := 0; i < n; i++ {
		key := i % 10
		go func() {
			defer wg.Done()
			res, err := repository.Load(key)
			assert.NoError(t, err)
			assert.Equal(t, key*key, res)
		}()
	}
	wg.Wait()

	assert.Less(t, backend.Calls(), n)
	for _, batch := range backend.Batches() {
		seen := make(map[int]bool)
		for _, key := range batch {
			assert.False(t, seen[key], "duplicate key %v in batch %v", key, batch)
			seen[key] = true
		}
	}
}

func TestMaxBatch(t *testing.T) {
	repository, backend := newSquareMockRepository(t, fetch.Config[int, int]{
		Batcher: &fetch.BatcherConfig{Wait: time.Second, MaxBatch: 4},
	})

	start := time.Now()
	values, errs := repository.LoadAll([]int{1, 2, 3, 4, 5, 6, 7, 8})
	assert.Less(t, time.Since(start), time.Second, "full batches must not wait for the timer")
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36, 49, 64}, values)
	assert.Equal(t, make([]error, 8), errs)
	for _, batch := range backend.Batches() {
		assert.LessOrEqual(t, len(batch), 4)
	}
}

func TestBatchMissingKey(t *testing.T) {
	repository, _ := newSquareMockRepository(t, fetch.Config[int, int]{
		Batcher: &fetch.BatcherConfig{Wait: 5 * time.Millisecond},
	})
	_, err := repository.Fetch(-1)
	receiver, ok := fetch.ReceiverOf[int](err)
	assert.True(t, ok)
	assert.Same(t, repository, receiver)
}

func TestLoadNoBatch(t *testing.T) {
	repository, _ := newSquareMockRepository(t, fetch.Config[int, int]{
		Batcher: &fetch.BatcherConfig{Wait: time.Hour},
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := repository.Load(3, fetch.LoadNoBatch)
		assert.NoError(t, err)
		assert.Equal(t, 9, v)
		values, errs := repository.LoadAll([]int{4}, fetch.LoadNoBatch)
		assert.Equal(t, []int{16}, values)
		assert.Equal(t, []error{nil}, errs)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("load with LoadNoBatch waited for the batcher")
	}
}

func TestSetAll(t *testing.T) {
	var order []string
	mu := sync.Mutex{}
	first := newRecordingLayer("first", &order, &mu)
	second := newRecordingLayer("second", &order, &mu)
	third := newRecordingLayer("third", &order, &mu)
	repository, err := fetch.New(fetch.Config[int, int]{
		Layers: []fetch.Layer[int, int]{first, second, third},
	})
	require.NoError(t, err)

	errs := repository.SetAll([]int{1, 2}, []int{10, 20}, fetch.SetSequential)
	assert.Equal(t, [][]error{nil, nil, nil}, errs)
	assert.Equal(t, []string{"third", "second", "first"}, order)

	order = nil
	repository.SetAll([]int{3}, []int{30}, fetch.SetSequential, fetch.SetAscending)
	assert.Equal(t, []string{"first", "second", "third"}, order)

	order = nil
	repository.SetAll([]int{4}, []int{40})
	assert.ElementsMatch(t, []string{"first", "second", "third"}, order)

	for _, l := range []*RecordingLayer{first, second, third} {
		for key, expected := range map[int]int{1: 10, 2: 20, 3: 30, 4: 40} {
			v, err := l.data.Fetch(key)
			assert.NoError(t, err)
			assert.Equal(t, expected, v)
		}
	}

	v, err := repository.Fetch(2)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func TestSetErrors(t *testing.T) {
	memory := layer.NewMemory[int, int](layer.MemoryConfig{})
	repository, err := fetch.New(fetch.Config[int, int]{
		Layers:          []fetch.Layer[int, int]{memory, FailingBackend{}},
		DefaultSetFlags: fetch.SetSequential | fetch.SetAscending,
	})
	require.NoError(t, err)

	errs := repository.Set(1, 2)
	assert.Equal(t, []error{nil, errBackendDown}, errs)

	mismatch := repository.SetAll([]int{1, 2}, []int{1})
	assert.Equal(t, [][]error{{fetch.ErrSetMismatch}, {fetch.ErrSetMismatch}}, mismatch)
}

// blocks loading odd keys
type oddKeyGuard struct{}

var errOddKey = errors.New("odd keys are not allowed")

func (oddKeyGuard) Name() string { return "oddKeyGuard" }

func (oddKeyGuard) PreLoadHook(traceID uint64, keys []int) []error {
	errs := make([]error, len(keys))
	for i, k := range keys {
		if k%2 != 0 {
			errs[i] = errOddKey
		}
	}
	return errs
}

type failingInit struct{}

func (failingInit) Name() string { return "failingInit" }

func (failingInit) InitializationHook(identifier string, layers []fetch.Layer[int, int]) error {
	return errOddKey
}

func TestPreLoadHookBlocksKeys(t *testing.T) {
	repository, backend := newSquareMockRepository(t, fetch.Config[int, int]{
		Extensions: []fetch.Extension{oddKeyGuard{}},
	})

	values, errs := repository.LoadAll([]int{1, 2, 3, 4})
	assert.Equal(t, []int{0, 4, 0, 16}, values)
	assert.Equal(t, []error{errOddKey, nil, errOddKey, nil}, errs)
	for _, batch := range backend.Batches() {
		assert.Equal(t, []int{2, 4}, batch)
	}
}

func TestInitializationHookError(t *testing.T) {
	_, err := fetch.New(fetch.Config[int, int]{
		Layers:     []fetch.Layer[int, int]{&SquareMockBackend{}},
		Extensions: []fetch.Extension{failingInit{}},
	})
	assert.ErrorIs(t, err, errOddKey)
}

func TestBatchMissingKeyFreshErrors(t *testing.T) {
	repository, _ := newSquareMockRepository(t, fetch.Config[int, int]{
		Batcher: &fetch.BatcherConfig{Wait: 20 * time.Millisecond},
	})

	_, errs := repository.LoadAll([]int{-1, -1})
	require.True(t, fetch.IsKeyError(errs[0]))
	require.True(t, fetch.IsKeyError(errs[1]))
	assert.NotSame(t, errs[0], errs[1])
	for _, err := range errs {
		receiver, _ := fetch.ReceiverOf[int](err)
		assert.Same(t, repository, receiver)
	}

	results := make([]error, 2)
	wg := sync.WaitGroup{}
	wg.Add(len(results))
	for i := range results {
		i := i
		go func() {
			defer wg.Done()
			_, results[i] = repository.Fetch(-2)
		}()
	}
	wg.Wait()
	key, ok := fetch.KeyOf[int](results[0])
	assert.True(t, ok)
	assert.Equal(t, -2, key)
	assert.NotSame(t, results[0], results[1])
}

func TestPrimeEachLayerOnce(t *testing.T) {
	var order []string
	mu := sync.Mutex{}
	first := newRecordingLayer("first", &order, &mu)
	mid := newRecordingLayer("mid", &order, &mu)
	mid.data.Store(1, 1)
	backend := &SquareMockBackend{}
	repository, err := fetch.New(fetch.Config[int, int]{
		Layers: []fetch.Layer[int, int]{first, mid, backend},
	})
	require.NoError(t, err)

	values, errs := repository.LoadAll([]int{1, 2})
	assert.Equal(t, []int{1, 4}, values)
	assert.Equal(t, []error{nil, nil}, errs)

	// first gets key 1 from mid and key 2 from the backend in one write
	assert.Eventually(t, func() bool {
		return first.data.Len() == 2 && mid.data.Len() == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"first", "mid"}, order)
}

func TestFetchAll(t *testing.T) {
	repository, _ := newSquareMockRepository(t, fetch.Config[int, int]{
		Batcher: &fetch.BatcherConfig{Wait: time.Hour},
	})

	values, errs := repository.FetchAll([]int{3, -3}, fetch.LoadNoBatch)
	assert.Equal(t, []int{9, 0}, values)
	assert.NoError(t, errs[0])
	key, ok := fetch.KeyOf[int](errs[1])
	assert.True(t, ok)
	assert.Equal(t, -3, key)

	_, err := repository.Load(-5, fetch.LoadNoBatch)
	receiver, ok := fetch.ReceiverOf[int](err)
	assert.True(t, ok)
	assert.Same(t, repository, receiver)
}
