package tlru

import (
	"errors"
	"time"
)

// configuration for a TLRU cache
type Config struct {
	MaxItems   int           `yaml:"max_items"`   // Maximum number of items in the storage, set to -1 to disable item limit
	DefaultTTL time.Duration `yaml:"default_ttl"` // TTL for items added into the cache, entries closest to expiration are evicted first
}

const ConfigDefaultMaxItems = 65_536
const ConfigDefaultTTL = time.Minute

var ErrInvalidTTL = errors.New("tlru: default TTL must not be negative")

func (c *Config) Validate() error {
	if c.MaxItems == 0 {
		c.MaxItems = ConfigDefaultMaxItems
	}
	if c.DefaultTTL < 0 {
		return ErrInvalidTTL
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = ConfigDefaultTTL
	}
	return nil
}
