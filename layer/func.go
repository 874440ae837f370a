package layer

import "github.com/flowscan/fetch"

// Func layer turns a batch handler into a read-only backend layer, usually placed as the last layer of a repository
type Func[TKey comparable, TValue any] struct {
	name    string
	handler fetch.BatchHandler[TKey, TValue]
}

var _ fetch.Layer[string, any] = (*Func[string, any])(nil)

// Create a backend layer from a batch handler
func NewBatchFunc[TKey comparable, TValue any](name string, handler fetch.BatchHandler[TKey, TValue]) *Func[TKey, TValue] {
	return &Func[TKey, TValue]{name: name, handler: handler}
}

// Create a backend layer from a single key handler, keys in a batch are resolved in parallel
func NewFunc[TKey comparable, TValue any](name string, handler fetch.Handler[TKey, TValue]) *Func[TKey, TValue] {
	return NewBatchFunc(name, fetch.Batchify(handler))
}

func (l *Func[TKey, TValue]) Identifier() string { return l.name }

func (l *Func[TKey, TValue]) Get(keys []TKey) ([]TValue, []error) {
	return l.handler(keys)
}

// Set is a no-op, the handler is the source of truth
func (l *Func[TKey, TValue]) Set(keys []TKey, values []TValue) []error {
	return nil
}
