package extension

import (
	"sync"
	"time"

	"github.com/flowscan/fetch"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is an extension for repositories that logs access and value sets for debugging
type Logger[TKey comparable, TValue any] struct {
	logger           zerolog.Logger
	identifier       string
	layerIdentifiers []string
	layerLoadStartAt map[uint64]time.Time
	layerSetStartAt  map[uint64]time.Time
	mu               sync.Mutex
}

// Create a logger extension writing to the given logger
func NewLogger[TKey comparable, TValue any](logger zerolog.Logger) *Logger[TKey, TValue] {
	return &Logger[TKey, TValue]{logger: logger}
}

// Create a logger extension writing to the global zerolog logger
func NewGlobalLogger[TKey comparable, TValue any]() *Logger[TKey, TValue] {
	return NewLogger[TKey, TValue](log.Logger)
}

func (e *Logger[TKey, TValue]) Name() string { return "Logger" }

func (e *Logger[TKey, TValue]) InitializationHook(identifier string, layers []fetch.Layer[TKey, TValue]) error {
	e.identifier = identifier
	e.logger = e.logger.With().Str("repository", identifier).Logger()
	e.layerLoadStartAt = make(map[uint64]time.Time)
	e.layerSetStartAt = make(map[uint64]time.Time)
	e.layerIdentifiers = make([]string, len(layers))
	for i, layer := range layers {
		e.layerIdentifiers[i] = layer.Identifier()
	}
	e.logger.Debug().Strs("layers", e.layerIdentifiers).Msg("repository initialized")
	return nil
}

func (e *Logger[TKey, TValue]) PreLoadHook(traceID uint64, keys []TKey) []error {
	e.logger.Debug().Uint64("trace", traceID).Msgf("loading start: %v", keys)
	return nil
}

func (e *Logger[TKey, TValue]) PostLoadHook(traceID uint64, keys []TKey, values []TValue, errors []error) {
	for _, err := range errors {
		if key, ok := fetch.KeyOf[TKey](err); ok {
			e.logger.Debug().Uint64("trace", traceID).Interface("key", key).Msg("key not found")
		} else if err != nil {
			e.logger.Warn().Uint64("trace", traceID).Err(err).Msg("load failed")
		}
	}
	e.logger.Debug().Uint64("trace", traceID).Msgf("loading finish: %v (errors: %v)", values, errors)
}

// layer start times are keyed by trace and layer so that concurrent loads don't collide
func layerTraceKey(traceID uint64, layerIndex int) uint64 {
	return traceID<<8 | uint64(layerIndex&0xff)
}

func (e *Logger[TKey, TValue]) LayerPreLoadHook(traceID uint64, layerIndex int, keys []TKey) {
	e.mu.Lock()
	e.layerLoadStartAt[layerTraceKey(traceID, layerIndex)] = time.Now()
	e.mu.Unlock()
	e.logger.Debug().Uint64("trace", traceID).Msgf("loading start at layer %v: %v", e.layerIdentifiers[layerIndex], keys)
}

func (e *Logger[TKey, TValue]) LayerPostLoadHook(traceID uint64, layerIndex int, keys []TKey, values []TValue, errors []error) {
	e.mu.Lock()
	startAt := e.layerLoadStartAt[layerTraceKey(traceID, layerIndex)]
	delete(e.layerLoadStartAt, layerTraceKey(traceID, layerIndex))
	e.mu.Unlock()
	e.logger.Debug().Uint64("trace", traceID).Dur("time", time.Since(startAt)).Msgf(
		"loading finish from layer %v: %v (errors: %v)",
		e.layerIdentifiers[layerIndex],
		values,
		errors,
	)
}

func (e *Logger[TKey, TValue]) LayerPreSetHook(traceID uint64, layerIndex int, keys []TKey, values []TValue) {
	e.mu.Lock()
	e.layerSetStartAt[layerTraceKey(traceID, layerIndex)] = time.Now()
	e.mu.Unlock()
	e.logger.Debug().Uint64("trace", traceID).Msgf("setting start at layer %v: keys: %v values: %v", e.layerIdentifiers[layerIndex], keys, values)
}

func (e *Logger[TKey, TValue]) LayerPostSetHook(traceID uint64, layerIndex int, keys []TKey, values []TValue, errors []error) {
	e.mu.Lock()
	startAt := e.layerSetStartAt[layerTraceKey(traceID, layerIndex)]
	delete(e.layerSetStartAt, layerTraceKey(traceID, layerIndex))
	e.mu.Unlock()
	e.logger.Debug().Uint64("trace", traceID).Dur("time", time.Since(startAt)).Msgf(
		"setting finish at layer %v: keys: %v values: %v errors: %v",
		e.layerIdentifiers[layerIndex],
		keys,
		values,
		errors,
	)
}
