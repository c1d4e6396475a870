package ratelimit

import (
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/arusnet/arus/internal/config"
)

// NewRedisClient builds the shared client for locks and token buckets.
// REDIS_ADDR left empty returns nil: the locker degrades to
// single-instance mode and rate limiting refuses to enable.
func NewRedisClient(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
}
