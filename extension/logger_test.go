package extension_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/flowscan/fetch"
	"github.com/flowscan/fetch/extension"
	"github.com/flowscan/fetch/layer"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buffer that can be written by the layer priming goroutines while the test reads it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newSquareRepository(t *testing.T, identifier string, extensions ...fetch.Extension) *fetch.Repository[int, int] {
	memory := layer.NewMemory[int, int](layer.MemoryConfig{Retention: time.Minute})
	t.Cleanup(memory.Close)
	backend := layer.NewFunc[int, int]("square", func(key int) (int, error) {
		if key < 0 {
			return 0, fetch.NewKeyError(key, nil)
		}
		return key * key, nil
	})
	repository, err := fetch.New(fetch.Config[int, int]{
		Identifier: identifier,
		Layers:     []fetch.Layer[int, int]{memory, backend},
		Extensions: extensions,
	})
	require.NoError(t, err)
	return repository
}

func TestLogger(t *testing.T) {
	out := &syncBuffer{}
	logger := extension.NewLogger[int, int](zerolog.New(out))
	assert.Equal(t, "Logger", logger.Name())
	repository := newSquareRepository(t, "logged", logger)

	assert.Contains(t, out.String(), `"repository":"logged"`)
	assert.Contains(t, out.String(), "repository initialized")

	_, err := repository.Fetch(3)
	require.NoError(t, err)
	_, err = repository.Fetch(-3)
	require.Error(t, err)
	repository.Set(4, 16)

	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("setting finish at layer memory"))
	}, time.Second, 10*time.Millisecond)

	logs := out.String()
	assert.Contains(t, logs, "loading start at layer memory")
	assert.Contains(t, logs, "loading finish from layer square")
	assert.Contains(t, logs, `"key":-3`)
	assert.Contains(t, logs, `"message":"key not found"`)
}

func TestGlobalLogger(t *testing.T) {
	logger := extension.NewGlobalLogger[int, int]()
	repository := newSquareRepository(t, "global", logger)
	v, err := repository.Fetch(2)
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}
