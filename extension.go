package fetch

// Extension interface is the base interface used for extensions
type Extension interface {
	Name() string // The extension name
}

// Extensions that hook on repository initialization
type InitializationHookExtension[TKey comparable, TValue any] interface {
	InitializationHook(identifier string, layers []Layer[TKey, TValue]) error
}

// Extensions that hook before a batched data load.
// A non-nil error for a key stops that key from being loaded, the error is returned for it instead
type PreLoadHookExtension[TKey comparable, TValue any] interface {
	PreLoadHook(traceID uint64, keys []TKey) []error
}

// Extensions that hook after a batched data load
type PostLoadHookExtension[TKey comparable, TValue any] interface {
	PostLoadHook(traceID uint64, keys []TKey, values []TValue, errors []error)
}

// Extensions that hook before a batched data load from a layer
type LayerPreLoadHookExtension[TKey comparable, TValue any] interface {
	LayerPreLoadHook(traceID uint64, layerIndex int, keys []TKey)
}

// Extensions that hook after a batched data load from a layer
type LayerPostLoadHookExtension[TKey comparable, TValue any] interface {
	LayerPostLoadHook(traceID uint64, layerIndex int, keys []TKey, values []TValue, errors []error)
}

// Extensions that hook before a data set operation
type PreSetHookExtension[TKey comparable, TValue any] interface {
	PreSetHook(traceID uint64, keys []TKey, values []TValue)
}

// Extensions that hook after a data set operation, errors are indexed by layer execution order then by key
type PostSetHookExtension[TKey comparable, TValue any] interface {
	PostSetHook(traceID uint64, keys []TKey, values []TValue, errors [][]error)
}

// Extensions that hook before a data set operation on a layer
type LayerPreSetHookExtension[TKey comparable, TValue any] interface {
	LayerPreSetHook(traceID uint64, layerIndex int, keys []TKey, values []TValue)
}

// Extensions that hook after a data set operation on a layer
type LayerPostSetHookExtension[TKey comparable, TValue any] interface {
	LayerPostSetHook(traceID uint64, layerIndex int, keys []TKey, values []TValue, errors []error)
}
