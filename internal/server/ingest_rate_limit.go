package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/arusnet/arus/internal/observability/logger"
	obsmetrics "github.com/arusnet/arus/internal/observability/metrics"
	"github.com/arusnet/arus/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitReasonGlobal = "global-rate"
	rateLimitReasonDevice = "device-rate"
)

type trafficIngestKey struct {
	DeviceID string `json:"device_id"`
}

// TrafficIngestRateLimit throttles the counter push endpoint. The
// per-device bucket keeps one chatty NAS from starving the rest; the
// global bucket caps the endpoint as a whole. Redis being down fails
// the request rather than opening the gate.
func (s *Server) TrafficIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.ingestLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		res, err := s.ingestLimiter.AllowGlobal(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("traffic ingest global rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			denyTrafficIngest(c, endpoint, rateLimitReasonGlobal, res, s.obsMetrics)
			return
		}

		deviceID, err := readTrafficIngestKey(c)
		if err != nil {
			logger.FromContext(ctx).Warn("traffic ingest rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}

		res, err = s.ingestLimiter.AllowDevice(ctx, deviceID)
		if err != nil {
			logger.FromContext(ctx).Warn("traffic ingest device rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			denyTrafficIngest(c, endpoint, rateLimitReasonDevice, res, s.obsMetrics)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func denyTrafficIngest(c *gin.Context, endpoint, reason string, res *ratelimit.Result, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("traffic ingest rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", retryAfterSeconds(res.RetryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(wait time.Duration) string {
	secs := int64((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

// readTrafficIngestKey peeks device_id out of the body and puts the
// body back for the handler.
func readTrafficIngestKey(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload trafficIngestKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}

	return strings.TrimSpace(payload.DeviceID), nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
