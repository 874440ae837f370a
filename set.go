package fetch

import (
	"errors"
	"sync"
)

// ErrSetMismatch is returned by every layer when the number of keys and values given to a set differ
var ErrSetMismatch = errors.New("keys and values length mismatch")

// SetMismatchErrors reports ErrSetMismatch for each of the count keys of a rejected layer set
func SetMismatchErrors(count int) []error {
	errs := make([]error, count)
	for i := range errs {
		errs[i] = ErrSetMismatch
	}
	return errs
}

// Set a data to all of the layers
// Returns an array of errors with each item representing an error returned by a layer
func (r *Repository[TKey, TValue]) Set(key TKey, value TValue, flags ...SetFlag) []error {
	result := r.SetAll([]TKey{key}, []TValue{value}, flags...)
	errors := make([]error, len(result))
	for i, layerErrors := range result {
		if len(layerErrors) > 0 {
			errors[i] = layerErrors[0]
		}
	}
	return errors
}

// Set a set of data to all of layers
// Returns an array of array of errors with the first dimension as the layer in execution order and second dimension as the key
func (r *Repository[TKey, TValue]) SetAll(keys []TKey, values []TValue, flags ...SetFlag) [][]error {
	if len(keys) != len(values) {
		errors := make([][]error, len(r.layers))
		for i := range errors {
			errors[i] = []error{ErrSetMismatch}
		}
		return errors
	}

	if !hasSetFlag(r.defaultSetFlags, flags, SetSequential) {
		return r.set(generateSequence(len(r.layers)), keys, values, false)
	}

	layerIndexes := make([]int, len(r.layers))
	if hasSetFlag(r.defaultSetFlags, flags, SetAscending) {
		layerIndexes = generateSequence(len(r.layers))
	} else {
		for i := range layerIndexes {
			layerIndexes[i] = len(r.layers) - 1 - i
		}
	}
	return r.set(layerIndexes, keys, values, true)
}

func (r *Repository[TKey, TValue]) set(layerIndexes []int, keys []TKey, values []TValue, sequential bool) [][]error {
	var traceID uint64 = r.getTraceID()
	var errors = make([][]error, len(layerIndexes))

	// execute pre-set hook
	for _, hook := range r.preSetHooks {
		hook.PreSetHook(traceID, keys, values)
	}

	if sequential {
		for i, layerIndex := range layerIndexes {
			errors[i] = r.layerSet(traceID, layerIndex, keys, values)
		}
	} else {
		wg := sync.WaitGroup{}
		wg.Add(len(layerIndexes))
		for i, layerIndex := range layerIndexes {
			capturedI := i
			capturedLayerIndex := layerIndex
			go func() {
				defer wg.Done()
				errors[capturedI] = r.layerSet(traceID, capturedLayerIndex, keys, values)
			}()
		}
		wg.Wait()
	}

	// execute post-set hook
	for _, hook := range r.postSetHooks {
		hook.PostSetHook(traceID, keys, values, errors)
	}

	return errors
}

func (r *Repository[TKey, TValue]) layerSet(traceID uint64, layerIndex int, keys []TKey, values []TValue) []error {
	layer := r.layers[layerIndex]

	// execute layer pre-set hook
	for _, hook := range r.layerPreSetHooks {
		hook.LayerPreSetHook(traceID, layerIndex, keys, values)
	}

	// execute the layer set operation
	errors := layer.Set(keys, values)

	// execute layer post-set hook
	for _, hook := range r.layerPostSetHooks {
		hook.LayerPostSetHook(traceID, layerIndex, keys, values, errors)
	}

	return errors
}
