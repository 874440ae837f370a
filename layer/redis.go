package layer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strconv"
	"time"

	"github.com/flowscan/fetch"
	"github.com/mediocregopher/radix/v3"
	"github.com/rs/zerolog/log"
)

// Configuration for the redis data layer
type RedisConfig struct {
	// The duration of the cached data, set 0 to disable expiration
	Retention time.Duration

	// Connection to redis, usually a *radix.Pool
	Connection radix.Client

	// Key prefix to be used in redis keys
	KeyPrefix string
}

// Redis layer is redis-backed cache layer with gob encoding and configurable expiration time
type Redis[TKey comparable, TValue any] struct {
	config RedisConfig
}

var _ fetch.Layer[string, any] = (*Redis[string, any])(nil)

// Create a new redis data layer
func NewRedis[TKey comparable, TValue any](config RedisConfig) *Redis[TKey, TValue] {
	return &Redis[TKey, TValue]{
		config: config,
	}
}

// Unique identifier for this layer used for logging and metric purposes
func (l *Redis[TKey, TValue]) Identifier() string { return "redis" }

// The function that will be used to resolve a set of keys
func (l *Redis[TKey, TValue]) Get(keys []TKey) ([]TValue, []error) {
	keysCount := len(keys)
	result := make([]TValue, keysCount)
	errors := make([]error, keysCount)
	if keysCount == 0 {
		return result, errors
	}

	cacheBuffer := make([][]byte, keysCount)
	if err := l.config.Connection.Do(radix.Cmd(&cacheBuffer, "MGET", stringifyKeys(keys, l.config.KeyPrefix)...)); err != nil {
		return result, fillArray(errors, err)
	}

	for i, k := range keys {
		if i >= len(cacheBuffer) || cacheBuffer[i] == nil {
			errors[i] = fetch.NewKeyError(k, l)
			continue
		}
		if err := gob.NewDecoder(bytes.NewReader(cacheBuffer[i])).Decode(&result[i]); err != nil {
			errors[i] = fmt.Errorf("decode %v: %w", k, err)
		}
	}
	return result, errors
}

// The function that will be called for successful resolvers
func (l *Redis[TKey, TValue]) Set(keys []TKey, values []TValue) []error {
	if len(keys) != len(values) {
		return fetch.SetMismatchErrors(len(keys))
	}
	errors := make([]error, len(keys))
	keysString := stringifyKeys(keys, l.config.KeyPrefix)

	// prepare batch SET commands using MSET
	cacheArguments := make([]string, 0, 2*len(keys))
	encodedKeys := make([]string, 0, len(keys))
	for i, value := range values {
		b := bytes.Buffer{}
		if err := gob.NewEncoder(&b).Encode(value); err != nil {
			log.Err(err).Str("key", keysString[i]).Msg("failed to encode value")
			errors[i] = err
			continue
		}
		cacheArguments = append(cacheArguments, keysString[i], b.String())
		encodedKeys = append(encodedKeys, keysString[i])
	}
	if len(encodedKeys) == 0 {
		return errors
	}

	commands := []radix.CmdAction{radix.Cmd(nil, "MSET", cacheArguments...)}

	// prepare PEXPIRE commands
	if l.config.Retention > 0 {
		millis := strconv.FormatInt(l.config.Retention.Milliseconds(), 10)
		for _, key := range encodedKeys {
			commands = append(commands, radix.Cmd(nil, "PEXPIRE", key, millis))
		}
	}

	if err := l.config.Connection.Do(radix.Pipeline(commands...)); err != nil {
		log.Err(err).Int("keys", len(encodedKeys)).Msg("failed to write to redis")
		for i := range errors {
			if errors[i] == nil {
				errors[i] = err
			}
		}
	}
	return errors
}

func stringifyKeys[TKey comparable](keys []TKey, prefix string) []string {
	return mapFn(keys, func(input TKey) string {
		return fmt.Sprintf("%s%v", prefix, input)
	})
}

func mapFn[T1 any, T2 any](arr []T1, fn func(input T1) T2) []T2 {
	newArr := make([]T2, len(arr))
	for i, v := range arr {
		newArr[i] = fn(v)
	}
	return newArr
}

func fillArray[T any](arr []T, value T) []T {
	for i := range arr {
		arr[i] = value
	}
	return arr
}
