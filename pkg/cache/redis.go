package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL bounds how long a cached profile is served before it is
// fetched again. Profiles change rarely; an hour keeps the proxy well under
// the unauthenticated rate limit without serving stale data for long.
const DefaultRedisTTL = time.Hour

// RedisStore caches profiles in Redis so multiple proxy instances share
// one cache and one rate budget worth of fetches.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. A ttl of 0 uses
// DefaultRedisTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func redisKey(key string) string {
	return "ghlookup:profile:" + key
}

// Get returns the cached payload for key, or ErrCacheMiss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return payload, nil
}

// Set stores the payload for key with the store's TTL.
func (s *RedisStore) Set(ctx context.Context, key string, payload []byte) error {
	if err := s.client.Set(ctx, redisKey(key), payload, s.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(payload)))
	return nil
}
