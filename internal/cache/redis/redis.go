// Package redis implementa el cache de estado OAuth sobre Redis.
package redis

import (
	"context"
	"errors"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/tharanithar-r/postcraft/internal/cache"
)

func init() {
	cache.Register("redis", func(cfg cache.Config) (cache.Client, error) {
		ttl := cfg.DefaultTTL
		if ttl == 0 {
			ttl = 10 * time.Minute
		}
		return New(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Prefix, ttl), nil
	})
}

type Cache struct {
	c          *rdb.Client
	prefix     string
	defaultTTL time.Duration
}

func New(addr string, db int, prefix string, defaultTTL time.Duration) *Cache {
	return &Cache{
		c:          rdb.NewClient(&rdb.Options{Addr: addr, DB: db}),
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

func (r *Cache) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Cache) Get(ctx context.Context, k string) ([]byte, error) {
	b, err := r.c.Get(ctx, r.key(k)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Cache) Set(ctx context.Context, k string, v []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.defaultTTL
	}
	return r.c.Set(ctx, r.key(k), v, ttl).Err()
}

func (r *Cache) Delete(ctx context.Context, k string) error {
	return r.c.Del(ctx, r.key(k)).Err()
}

func (r *Cache) Close() error { return r.c.Close() }

// Client expone el cliente subyacente para usos que necesitan comandos
// más allá de get/set, como el rate limiter.
func (r *Cache) Client() *rdb.Client { return r.c }
