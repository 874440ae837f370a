package fetch

import "time"

// Configuration for a repository
type Config[TKey comparable, TValue any] struct {
	// Identifier for this repository
	Identifier string

	// Configuration for the batcher, if not included batching will be disabled
	Batcher *BatcherConfig

	// The data resolver layers for this repository, executed from the first to the last
	Layers []Layer[TKey, TValue]

	// Default load flags
	DefaultLoadFlags LoadFlag

	// Default set flags
	DefaultSetFlags SetFlag

	// Array of extensions to be used
	Extensions []Extension
}

// Configuration for the batcher
type BatcherConfig struct {
	// Wait is how long wait before sending a batch
	Wait time.Duration

	// MaxBatch will limit the maximum number of keys to send in one batch, 0 = not limit
	MaxBatch int
}
