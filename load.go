package fetch

// Fetch a data by key, a key that none of the layers can resolve fails with a *KeyError
// carrying the key and this repository
func (r *Repository[TKey, TValue]) Fetch(key TKey) (TValue, error) {
	return r.Load(key)
}

// FetchAll is the strict lookup of many keys, each missing key fails with its own *KeyError
func (r *Repository[TKey, TValue]) FetchAll(keys []TKey, flags ...LoadFlag) ([]TValue, []error) {
	return r.LoadAll(keys, flags...)
}

// FetchOr loads a data by key, falling back to the given default if the key can't be resolved.
// Errors other than key lookup failures are still returned
func (r *Repository[TKey, TValue]) FetchOr(key TKey, def TValue, flags ...LoadFlag) (TValue, error) {
	value, err := r.Load(key, flags...)
	if IsKeyError(err) {
		return def, nil
	}
	return value, err
}

// Load a data from it's key
func (r *Repository[TKey, TValue]) Load(key TKey, flags ...LoadFlag) (TValue, error) {
	if r.batcher == nil || hasLoadFlag(r.defaultLoadFlags, flags, LoadNoBatch) {
		return Singlify[TKey, TValue](r.resolveAndCollect)(key)
	}
	return r.batcher.Load(key)
}

// Load a set of data from their keys
func (r *Repository[TKey, TValue]) LoadAll(keys []TKey, flags ...LoadFlag) ([]TValue, []error) {
	if r.batcher == nil || hasLoadFlag(r.defaultLoadFlags, flags, LoadNoBatch) {
		return r.resolveAndCollect(keys)
	}
	return r.batcher.LoadAll(keys)
}
