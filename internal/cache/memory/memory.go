// Package memory implementa el cache de estado OAuth en memoria.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tharanithar-r/postcraft/internal/cache"
)

func init() {
	cache.Register("memory", func(cfg cache.Config) (cache.Client, error) {
		ttl := cfg.DefaultTTL
		if ttl == 0 {
			ttl = 10 * time.Minute
		}
		return New(ttl), nil
	})
}

type Cache struct{ c *gocache.Cache }

func New(defaultTTL time.Duration) *Cache {
	return &Cache{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Cache) Get(_ context.Context, k string) ([]byte, error) {
	v, ok := m.c.Get(k)
	if !ok {
		return nil, cache.ErrNotFound
	}
	b, _ := v.([]byte)
	return b, nil
}

func (m *Cache) Set(_ context.Context, k string, v []byte, ttl time.Duration) error {
	m.c.Set(k, v, ttl)
	return nil
}

func (m *Cache) Delete(_ context.Context, k string) error {
	m.c.Delete(k)
	return nil
}

func (m *Cache) Close() error { return nil }
