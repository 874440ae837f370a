package fetch

// Load a set of data from their keys and prime the layers with the data resolved by the next layer.
// finishKey is called exactly once for every index of keys, as soon as the key is settled
func (r *Repository[TKey, TValue]) resolve(keys []TKey, finishKey func(index int, value TValue, err error)) {
	var keysCount = len(keys)

	var result = make([]TValue, keysCount) // array containing the final result of values
	var errors = make([]error, keysCount)  // array containing errors for each keys

	var unresolvedResultIndexes = generateSequence(keysCount) // an array of indexes from the current layer's array to the original result array
	var layerKeys = keys                                      // set of keys to be resolved by the current layer

	var traceID uint64 = r.getTraceID()

	// keys resolved by a later layer, collected per earlier layer so each one is primed once
	var primeKeys = make([][]TKey, len(r.layers))
	var primeValues = make([][]TValue, len(r.layers))

	finish := func(index int, value TValue, err error) {
		result[index] = value
		errors[index] = err
		finishKey(index, value, err)
	}

	// execute pre-load hooks before execution
	if len(r.preLoadHooks) > 0 {
		preLoadErrors := make([]error, keysCount)
		for _, hook := range r.preLoadHooks {
			mergeErrors(preLoadErrors, hook.PreLoadHook(traceID, keys))
		}

		// filter out the keys that is blocked by the pre-load hooks
		allowed := make([]int, 0, keysCount)
		for i, err := range preLoadErrors {
			if err != nil {
				finish(i, zero[TValue](), err)
			} else {
				allowed = append(allowed, i)
			}
		}
		unresolvedResultIndexes = allowed
		layerKeys = extract(keys, allowed)
	}

	// iterate over all data layers from the beginning to the end
	// if any of the results are empty, try resolving the data from the next layer
	for layerIndex, layer := range r.layers {
		if len(layerKeys) == 0 {
			break
		}

		// execute layer pre-load hooks before execution
		for _, hook := range r.layerPreLoadHooks {
			hook.LayerPreLoadHook(traceID, layerIndex, layerKeys)
		}

		layerResult, layerErrors := layer.Get(layerKeys)

		// execute layer post-load hooks
		for _, hook := range r.layerPostLoadHooks {
			hook.LayerPostLoadHook(traceID, layerIndex, layerKeys, layerResult, layerErrors)
		}

		resolvedLayerIndexes, resolvedLayerKeys, resolvedLayerValues, unresolvedLayerIndexes, unresolvedLayerKeys, unresolvedLayerErrors := group(layerKeys, layerResult, layerErrors)

		if len(resolvedLayerKeys) > 0 {
			resolvedResultIndexes := extract(unresolvedResultIndexes, resolvedLayerIndexes)

			// call the finishKey function for all resolved values
			for i := range resolvedResultIndexes {
				finish(resolvedResultIndexes[i], resolvedLayerValues[i], nil)
			}

			// queue the data for priming on the previous layers
			for i := layerIndex - 1; i >= 0; i-- {
				primeKeys[i] = append(primeKeys[i], resolvedLayerKeys...)
				primeValues[i] = append(primeValues[i], resolvedLayerValues...)
			}
		}

		// merge the errors to the result
		mergeWithIndexes(errors, unresolvedLayerErrors, extract(unresolvedResultIndexes, unresolvedLayerIndexes))

		// load the unresolved data from the next layer
		layerKeys = unresolvedLayerKeys
		unresolvedResultIndexes = extract(unresolvedResultIndexes, unresolvedLayerIndexes)
	}

	// prime the previous layers with everything the later layers resolved
	for i := len(primeKeys) - 1; i >= 0; i-- {
		if len(primeKeys[i]) > 0 {
			go r.layerSet(traceID, i, primeKeys[i], primeValues[i])
		}
	}

	// call finishKey for all unresolved values, misses are reported against the repository itself
	for _, index := range unresolvedResultIndexes {
		err := errors[index]
		if err == nil || IsKeyError(err) {
			err = NewKeyError(keys[index], r)
		}
		finish(index, zero[TValue](), err)
	}

	// execute post-load hooks
	for _, hook := range r.postLoadHooks {
		hook.PostLoadHook(traceID, keys, result, errors)
	}
}

func (r *Repository[TKey, TValue]) resolveAndCollect(keys []TKey) ([]TValue, []error) {
	result := make([]TValue, len(keys))
	errors := make([]error, len(keys))
	r.resolve(keys, func(index int, value TValue, err error) {
		if err != nil {
			errors[index] = err
		} else {
			result[index] = value
		}
	})
	return result, errors
}

// extract a layer resolver result
func group[TKey comparable, TValue any](keys []TKey, values []TValue, errors []error) (
	[]int,
	[]TKey,
	[]TValue,
	[]int,
	[]TKey,
	[]error,
) {
	resolvedIndexes := make([]int, len(keys))
	resolvedKeys := make([]TKey, len(keys))
	resolvedValues := make([]TValue, len(keys))
	resolvedCounter := 0
	unresolvedIndexes := make([]int, len(keys))
	unresolvedKeys := make([]TKey, len(keys))
	unresolvedErrors := make([]error, len(keys))
	unresolvedCounter := 0
	for i := range keys {
		if len(errors) == 0 || (errors[i] == nil) {
			resolvedIndexes[resolvedCounter] = i
			resolvedKeys[resolvedCounter] = keys[i]
			resolvedValues[resolvedCounter] = values[i]
			resolvedCounter++
		} else {
			unresolvedIndexes[unresolvedCounter] = i
			unresolvedKeys[unresolvedCounter] = keys[i]
			unresolvedErrors[unresolvedCounter] = errors[i]
			unresolvedCounter++
		}
	}
	return resolvedIndexes[:resolvedCounter],
		resolvedKeys[:resolvedCounter],
		resolvedValues[:resolvedCounter],
		unresolvedIndexes[:unresolvedCounter],
		unresolvedKeys[:unresolvedCounter],
		unresolvedErrors[:unresolvedCounter]
}

// write the values from the source array into the destination array based on the given indexes
func mergeWithIndexes[T any](destination []T, source []T, indexes []int) {
	for i, dstIndex := range indexes {
		destination[dstIndex] = source[i]
	}
}

// keep the first error reported for each index
func mergeErrors(destination []error, array []error) {
	for i, v := range array {
		if i < len(destination) && destination[i] == nil && v != nil {
			destination[i] = v
		}
	}
}

// extract an array from the original array using the given indexes
func extract[T any](source []T, indexes []int) []T {
	result := make([]T, len(indexes))
	for i, v := range indexes {
		result[i] = source[v]
	}
	return result
}

// generate a sequence of integers starting from 0
func generateSequence(count int) []int {
	arr := make([]int, count)
	for i := 0; i < count; i++ {
		arr[i] = i
	}
	return arr
}
