package vault

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Fetcher retrieves the latest value of a named secret from the backing
// store, with no caching.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// Cache wraps a Fetcher with the Client semantics: values are fetched once
// and served from memory afterwards, and a failed refresh falls back to the
// cached value when one exists.
type Cache struct {
	fetcher Fetcher
	log     zerolog.Logger

	mu     sync.Mutex
	values map[string]string
}

// NewCache returns a caching Client over the given fetcher.
func NewCache(fetcher Fetcher, log zerolog.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		log:     log,
		values:  make(map[string]string),
	}
}

func (c *Cache) GetSecret(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	cached, ok := c.values[name]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	value, err := c.fetcher.Fetch(ctx, name)
	if err != nil {
		return "", err
	}

	c.store(name, value)
	return value, nil
}

func (c *Cache) RefreshSecret(ctx context.Context, name string) (string, error) {
	value, err := c.fetcher.Fetch(ctx, name)
	if err != nil {
		c.mu.Lock()
		cached, ok := c.values[name]
		c.mu.Unlock()
		if ok {
			c.log.Warn().Str("secret", name).Err(err).
				Msg("refresh failed, serving cached value")
			return cached, nil
		}
		return "", err
	}

	c.store(name, value)
	return value, nil
}

func (c *Cache) store(name, value string) {
	c.mu.Lock()
	c.values[name] = value
	c.mu.Unlock()
}
