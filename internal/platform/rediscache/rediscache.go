// Package rediscache implements the optional redis-backed secondary cache
// backend named by §6 "cache.backend" (memory|redis): a JSON-serializing
// quote cache over go-redis, grounded on the teacher's
// marketdata/infrastructure/persistence/redis quote repository.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wyfcoding/etfarb/internal/cache"
	"github.com/wyfcoding/etfarb/internal/quote"
)

// Config dials a redis client per §6 "redis.*".
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	MaxPoolSize  int
	ConnTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// QuoteCache is a redis-backed, single-flight-free alternative to
// cache.Cache[quote.Quote]: it satisfies the same engine.QuoteCache shape
// so cmd/server can swap backends by config without touching the engine.
// Unlike cache.Cache, hits/misses are not tracked in-process (Stats is not
// part of the QuoteCache contract the engine depends on) since a redis
// deployment is typically shared across replicas and per-process counters
// would be misleading.
type QuoteCache struct {
	client *redis.Client
	prefix string
}

// New dials cfg and returns a QuoteCache. The caller is responsible for
// calling Close when done.
func New(cfg Config) *QuoteCache {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxPoolSize,
		DialTimeout:  cfg.ConnTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return &QuoteCache{client: client, prefix: "etfarb:quote:"}
}

// Close releases the underlying connection pool.
func (c *QuoteCache) Close() error {
	return c.client.Close()
}

// GetOrFill matches engine.QuoteCache's contract: a cache hit skips loader
// entirely; a miss calls loader, stores the result at ttl, and returns it.
// Concurrent misses for the same key are not deduplicated the way
// cache.Cache's singleflight group dedupes them (§4.B is explicitly an
// in-process guarantee); redis itself absorbs the resulting duplicate
// writes cheaply since they are idempotent SETs of the same key.
func (c *QuoteCache) GetOrFill(key string, loader cache.Loader[quote.Quote], ttl time.Duration) (quote.Quote, bool, error) {
	var zero quote.Quote
	redisKey := c.prefix + key

	ctx := context.Background()
	if data, err := c.client.Get(ctx, redisKey).Bytes(); err == nil {
		var q quote.Quote
		if err := json.Unmarshal(data, &q); err == nil {
			return q, false, nil
		}
	} else if err != redis.Nil {
		return zero, false, fmt.Errorf("redis get %s: %w", redisKey, err)
	}

	v, err := loader()
	if err != nil {
		return zero, false, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v, true, fmt.Errorf("marshal quote for cache: %w", err)
	}
	if err := c.client.Set(ctx, redisKey, data, ttl).Err(); err != nil {
		return v, true, fmt.Errorf("redis set %s: %w", redisKey, err)
	}
	return v, true, nil
}
