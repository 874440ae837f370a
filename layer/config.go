package layer

import (
	"errors"
	"fmt"
	"time"

	"github.com/flowscan/fetch"
	"github.com/flowscan/fetch/layer/tlru"
	"github.com/mediocregopher/radix/v3"
	"gopkg.in/yaml.v3"
)

var ErrMissingRedisAddr = errors.New("redis layer requires an address")

// StackConfig declares the cache layers placed in front of a backend, in order: memory, tlru, redis.
// A nil section leaves that layer out
type StackConfig struct {
	Memory *MemoryConfig     `yaml:"memory"`
	TLRU   *tlru.Config      `yaml:"tlru"`
	Redis  *RedisStackConfig `yaml:"redis"`
}

// Connection settings for a redis layer declared in a stack config
type RedisStackConfig struct {
	Network   string        `yaml:"network"`
	Addr      string        `yaml:"addr"`
	PoolSize  int           `yaml:"pool_size"`
	KeyPrefix string        `yaml:"key_prefix"`
	Retention time.Duration `yaml:"retention"`
}

// ParseStackConfig reads a stack config from YAML
func ParseStackConfig(data []byte) (StackConfig, error) {
	var config StackConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return StackConfig{}, fmt.Errorf("parse stack config: %w", err)
	}
	if config.Redis != nil {
		if config.Redis.Addr == "" {
			return StackConfig{}, ErrMissingRedisAddr
		}
		if config.Redis.Network == "" {
			config.Redis.Network = "tcp"
		}
		if config.Redis.PoolSize <= 0 {
			config.Redis.PoolSize = 10
		}
	}
	return config, nil
}

// BuildStack creates the configured layers followed by the given backend, ready to be used as Config.Layers
func BuildStack[TKey comparable, TValue any](config StackConfig, backend fetch.Layer[TKey, TValue]) ([]fetch.Layer[TKey, TValue], error) {
	layers := make([]fetch.Layer[TKey, TValue], 0, 4)
	if config.Memory != nil {
		layers = append(layers, NewMemory[TKey, TValue](*config.Memory))
	}
	if config.TLRU != nil {
		cache, err := tlru.NewCache[TKey, TValue](*config.TLRU)
		if err != nil {
			return nil, err
		}
		layers = append(layers, cache)
	}
	if config.Redis != nil {
		pool, err := radix.NewPool(config.Redis.Network, config.Redis.Addr, config.Redis.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", config.Redis.Addr, err)
		}
		layers = append(layers, NewRedis[TKey, TValue](RedisConfig{
			Retention:  config.Redis.Retention,
			Connection: pool,
			KeyPrefix:  config.Redis.KeyPrefix,
		}))
	}
	if backend != nil {
		layers = append(layers, backend)
	}
	return layers, nil
}
