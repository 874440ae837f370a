package fetch

import (
	"errors"
	"sync/atomic"
)

// ErrNoLayers is returned when a repository is created without any data layer
var ErrNoLayers = errors.New("repository requires at least one layer")

// Repository resolves keys through a stack of data layers, priming the faster layers
// with data resolved by the slower ones
type Repository[TKey comparable, TValue any] struct {
	// identifier for the repository
	identifier string

	// data resolver layers in this repository
	layers []Layer[TKey, TValue]

	// batcher if batching is enabled
	batcher *Batcher[TKey, TValue]

	// trace counter for trace ID assignment
	traceCounter uint64

	// default flags
	defaultLoadFlags LoadFlag
	defaultSetFlags  SetFlag

	// hooks
	initializationHooks []InitializationHookExtension[TKey, TValue]
	preLoadHooks        []PreLoadHookExtension[TKey, TValue]
	postLoadHooks       []PostLoadHookExtension[TKey, TValue]
	layerPreLoadHooks   []LayerPreLoadHookExtension[TKey, TValue]
	layerPostLoadHooks  []LayerPostLoadHookExtension[TKey, TValue]
	preSetHooks         []PreSetHookExtension[TKey, TValue]
	postSetHooks        []PostSetHookExtension[TKey, TValue]
	layerPreSetHooks    []LayerPreSetHookExtension[TKey, TValue]
	layerPostSetHooks   []LayerPostSetHookExtension[TKey, TValue]
}

var _ Lookupable[string, any] = (*Repository[string, any])(nil)

func (r *Repository[TKey, TValue]) getTraceID() uint64 {
	return atomic.AddUint64(&r.traceCounter, 1)
}

// Identifier of this repository used for logging and metric purposes
func (r *Repository[TKey, TValue]) Identifier() string { return r.identifier }

// Create a new data repository with the given configuration
func New[TKey comparable, TValue any](config Config[TKey, TValue]) (*Repository[TKey, TValue], error) {
	if len(config.Layers) == 0 {
		return nil, ErrNoLayers
	}

	r := &Repository[TKey, TValue]{
		identifier:       config.Identifier,
		layers:           config.Layers,
		defaultLoadFlags: config.DefaultLoadFlags,
		defaultSetFlags:  config.DefaultSetFlags,
	}
	if config.Batcher != nil {
		r.batcher = newBatcher(*config.Batcher, r.resolve)
	}

	r.registerExtensions(config.Extensions)

	// Execute initialization hooks
	for _, hook := range r.initializationHooks {
		err := hook.InitializationHook(r.identifier, r.layers)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Repository[TKey, TValue]) registerExtensions(extensions []Extension) {
	for _, ext := range extensions {
		if ext, ok := ext.(InitializationHookExtension[TKey, TValue]); ok {
			r.initializationHooks = append(r.initializationHooks, ext)
		}
		if ext, ok := ext.(PreLoadHookExtension[TKey, TValue]); ok {
			r.preLoadHooks = append(r.preLoadHooks, ext)
		}
		if ext, ok := ext.(PostLoadHookExtension[TKey, TValue]); ok {
			r.postLoadHooks = append(r.postLoadHooks, ext)
		}
		if ext, ok := ext.(LayerPreLoadHookExtension[TKey, TValue]); ok {
			r.layerPreLoadHooks = append(r.layerPreLoadHooks, ext)
		}
		if ext, ok := ext.(LayerPostLoadHookExtension[TKey, TValue]); ok {
			r.layerPostLoadHooks = append(r.layerPostLoadHooks, ext)
		}
		if ext, ok := ext.(PreSetHookExtension[TKey, TValue]); ok {
			r.preSetHooks = append(r.preSetHooks, ext)
		}
		if ext, ok := ext.(PostSetHookExtension[TKey, TValue]); ok {
			r.postSetHooks = append(r.postSetHooks, ext)
		}
		if ext, ok := ext.(LayerPreSetHookExtension[TKey, TValue]); ok {
			r.layerPreSetHooks = append(r.layerPreSetHooks, ext)
		}
		if ext, ok := ext.(LayerPostSetHookExtension[TKey, TValue]); ok {
			r.layerPostSetHooks = append(r.layerPostSetHooks, ext)
		}
	}
}
