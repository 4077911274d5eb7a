// Package cache provides a Redis-backed read cache for feed-adjacent data
// (trends, news articles). The cache is best-effort: when Redis is
// unreachable the client is nil and every helper degrades to a miss.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

// InitRedis connects the package-level client. A failed ping leaves the
// client nil; callers continue without caching.
func InitRedis(addr string) {
	Client = redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis connection failed; continuing without cache", "err", err)
		Client = nil
	} else {
		slog.Info("redis connected")
	}
}

// GetClient returns the package-level client, nil when caching is disabled.
func GetClient() *redis.Client {
	return Client
}
