package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	trafficIngest        metric.Int64Counter
	webhookEvents        metric.Int64Counter
	notificationAttempts metric.Int64Counter
	sessionEvents        metric.Int64Counter
	alarmTransitions     metric.Int64Counter
	rateLimitAllowed     metric.Int64Counter
	rateLimitDenied      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "arus"
	}
	meter := provider.Meter(name)

	trafficIngest, err := meter.Int64Counter("arus_traffic_ingest_total")
	if err != nil {
		return nil, err
	}
	webhookEvents, err := meter.Int64Counter("arus_webhook_events_total")
	if err != nil {
		return nil, err
	}
	notificationAttempts, err := meter.Int64Counter("arus_notification_attempts_total")
	if err != nil {
		return nil, err
	}
	sessionEvents, err := meter.Int64Counter("arus_session_events_total")
	if err != nil {
		return nil, err
	}
	alarmTransitions, err := meter.Int64Counter("arus_alarm_transitions_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("arus_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("arus_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		trafficIngest:        trafficIngest,
		webhookEvents:        webhookEvents,
		notificationAttempts: notificationAttempts,
		sessionEvents:        sessionEvents,
		alarmTransitions:     alarmTransitions,
		rateLimitAllowed:     rateLimitAllowed,
		rateLimitDenied:      rateLimitDenied,
	}, nil
}

// RecordTrafficIngest increments traffic sample ingest counts.
func (m *Metrics) RecordTrafficIngest(ctx context.Context, deviceType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("device_type", strings.TrimSpace(deviceType)))
	m.trafficIngest.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordWebhookEvent increments webhook event counts by outcome.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, source, eventType, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("source", strings.TrimSpace(source)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotificationAttempt increments notification delivery attempts.
func (m *Metrics) RecordNotificationAttempt(ctx context.Context, channel, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("channel", strings.TrimSpace(channel)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.notificationAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSessionEvent increments session lifecycle counts.
func (m *Metrics) RecordSessionEvent(ctx context.Context, kind, event string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("session_kind", strings.TrimSpace(kind)),
		attribute.String("event", strings.TrimSpace(event)),
	)
	m.sessionEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAlarmTransition increments alarm lifecycle transition counts.
func (m *Metrics) RecordAlarmTransition(ctx context.Context, severity, transition string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("severity", strings.TrimSpace(severity)),
		attribute.String("transition", strings.TrimSpace(transition)),
	)
	m.alarmTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":     {},
	"status_code":  {},
	"device_type":  {},
	"session_kind": {},
	"event":        {},
	"channel":      {},
	"severity":     {},
	"transition":   {},
	"source":       {},
	"event_type":   {},
	"outcome":      {},
	"reason":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
