package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/arusnet/arus/internal/config"
)

const (
	keyIngestDevice = "ingest:device:%s"
	keyIngestGlobal = "ingest:global"
)

// IngestLimiter protects the telemetry write path. NAS devices and
// monitoring agents post traffic samples, heartbeats and session events
// on a timer; a misconfigured agent stuck in a tight loop must not be
// able to flood the database. Each device gets its own bucket, with one
// global bucket over everything as the backstop.
type IngestLimiter struct {
	enabled bool
	bucket  *TokenBucket

	deviceRate  float64
	deviceBurst int
	globalRate  float64
	globalBurst int
}

func NewIngestLimiter(cfg config.Config, client *redis.Client) (*IngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	if client == nil {
		return nil, errors.New("rate limiting requires REDIS_ADDR")
	}
	if limitCfg.IngestDeviceRate <= 0 || limitCfg.IngestDeviceBurst <= 0 {
		return nil, errors.New("ingest device rate limit must be positive")
	}
	if limitCfg.IngestGlobalRate <= 0 || limitCfg.IngestGlobalBurst <= 0 {
		return nil, errors.New("ingest global rate limit must be positive")
	}

	return &IngestLimiter{
		enabled:     true,
		bucket:      NewTokenBucket(client),
		deviceRate:  limitCfg.IngestDeviceRate,
		deviceBurst: limitCfg.IngestDeviceBurst,
		globalRate:  limitCfg.IngestGlobalRate,
		globalBurst: limitCfg.IngestGlobalBurst,
	}, nil
}

func (l *IngestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowGlobal checks the backstop bucket shared by every reporter.
func (l *IngestLimiter) AllowGlobal(ctx context.Context) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, keyIngestGlobal, l.globalRate, l.globalBurst)
}

// AllowDevice checks the per-device bucket. Reports that do not name a
// device share the "unknown" bucket rather than bypassing the limit.
func (l *IngestLimiter) AllowDevice(ctx context.Context, deviceID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = "unknown"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyIngestDevice, deviceID), l.deviceRate, l.deviceBurst)
}
