// Package ratelimit holds the redis-backed admission controls: a token
// bucket for the telemetry ingest endpoints and a lease-style lock the
// scheduler uses so jobs run on exactly one instance.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// lockReleaseScript deletes the key only when it still holds our token,
// so a lock that expired and was re-taken by another instance is never
// released from under it.
const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker hands out expiring leases keyed by name. The holder gets back
// a token that only it can release with.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

// NewLocker returns nil when no redis client is configured; callers
// treat a nil Locker as "single instance, no locking needed".
func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

// TryLock attempts to take the lease without blocking. The returned
// token proves ownership to Release. ok is false when another holder
// has the lease.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release gives the lease back. Releasing with a stale token, or after
// expiry, is a no-op.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
