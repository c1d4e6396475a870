package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics exposes request-level prometheus instruments for the gin engine.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	reqSize  *prometheus.HistogramVec
	respSize *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP instruments on the default registerer.
func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) *HTTPMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "arus"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "arus_http_requests_total",
		Help:        "HTTP requests by method, route and status.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "arus_http_request_duration_seconds",
		Help:        "HTTP request latency by method and route.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"method", "route"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "arus_http_requests_in_flight",
		Help:        "HTTP requests currently being served.",
		ConstLabels: constLabels,
	})
	reqSize := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "arus_http_request_size_bytes",
		Help:        "HTTP request body size by route.",
		Buckets:     prometheus.ExponentialBuckets(128, 4, 8),
		ConstLabels: constLabels,
	}, []string{"route"})
	respSize := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "arus_http_response_size_bytes",
		Help:        "HTTP response body size by route.",
		Buckets:     prometheus.ExponentialBuckets(128, 4, 8),
		ConstLabels: constLabels,
	}, []string{"route"})

	registerer.MustRegister(requests, duration, inFlight, reqSize, respSize)

	return &HTTPMetrics{
		requests: requests,
		duration: duration,
		inFlight: inFlight,
		reqSize:  reqSize,
		respSize: respSize,
	}
}

// GinMiddleware records request counts, latency and payload sizes per route.
// Routes use the matched template so cardinality stays bounded.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.requests.WithLabelValues(method, route, status).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if c.Request.ContentLength > 0 {
			m.reqSize.WithLabelValues(route).Observe(float64(c.Request.ContentLength))
		}
		if size := c.Writer.Size(); size > 0 {
			m.respSize.WithLabelValues(route).Observe(float64(size))
		}
	}
}
