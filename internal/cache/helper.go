package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"chirp/internal/observability"
)

// Key builders. Keys are prefixed per concern so a flush can target one.

const (
	TrendsKeyPrefix       = "trends__"
	NewsArticlesKeyPrefix = "news__"
)

func TrendsKey(scope string) string          { return TrendsKeyPrefix + scope }
func NewsArticlesKey(category string) string { return NewsArticlesKeyPrefix + category }

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if Client == nil {
		return false, nil
	}
	s, err := Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if Client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := Client.Set(ctx, key, b, ttl).Err(); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		return err
	}
	return nil
}

// Invalidate removes a key; errors are best-effort.
func Invalidate(ctx context.Context, key string) {
	if Client == nil {
		return
	}
	if err := Client.Del(ctx, key).Err(); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("del").Inc()
	}
}

// InvalidatePrefix removes every key under a prefix; errors are best-effort.
func InvalidatePrefix(ctx context.Context, prefix string) {
	if Client == nil {
		return
	}
	keys, err := Client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("keys").Inc()
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := Client.Del(ctx, keys...).Err(); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("del").Inc()
	}
}

// CacheAside tries Redis first, on miss it calls fetch (which should populate dest),
// then stores the result in Redis with ttl. fetch must write into dest.
func CacheAside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) (err error) {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	// Store into cache (best-effort)
	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}
