package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arusnet/arus/internal/config"
)

// The client never dials until a command runs, so constructor and
// validation paths are testable without a redis.
func testRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "localhost:6379"})
}

func TestIngestLimiterDisabled(t *testing.T) {
	var cfg config.Config
	cfg.RateLimit.Enabled = false

	limiter, err := NewIngestLimiter(cfg, nil)
	require.NoError(t, err)
	require.Nil(t, limiter)

	// A nil limiter admits everything; callers never nil-check.
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowGlobal(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.AllowDevice(context.Background(), "9001")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestIngestLimiterValidatesConfig(t *testing.T) {
	var cfg config.Config
	cfg.RateLimit = config.RateLimitConfig{
		Enabled:           true,
		IngestDeviceRate:  10,
		IngestDeviceBurst: 30,
		IngestGlobalRate:  200,
		IngestGlobalBurst: 500,
	}

	_, err := NewIngestLimiter(cfg, nil)
	require.Error(t, err)

	bad := cfg
	bad.RateLimit.IngestDeviceRate = 0
	_, err = NewIngestLimiter(bad, testRedisClient())
	require.Error(t, err)

	bad = cfg
	bad.RateLimit.IngestGlobalBurst = 0
	_, err = NewIngestLimiter(bad, testRedisClient())
	require.Error(t, err)

	limiter, err := NewIngestLimiter(cfg, testRedisClient())
	require.NoError(t, err)
	assert.True(t, limiter.Enabled())
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 6*time.Second, bucketTTL(10, 30))
	assert.Equal(t, 5*time.Second, bucketTTL(200, 500))

	// Never shorter than a second, or the bucket forgets itself
	// between requests.
	assert.Equal(t, time.Second, bucketTTL(100, 10))
}

func TestLockerWithoutRedis(t *testing.T) {
	locker := NewLocker(nil)
	require.Nil(t, locker)

	_, _, err := locker.TryLock(context.Background(), "jobs:expire", time.Minute)
	assert.Error(t, err)

	assert.NoError(t, locker.Release(context.Background(), "jobs:expire", "token"))
}

func TestNewRedisClientOptional(t *testing.T) {
	var cfg config.Config
	assert.Nil(t, NewRedisClient(cfg))

	cfg.RedisAddr = " localhost:6379 "
	assert.NotNil(t, NewRedisClient(cfg))
}
