package cloudmetrics

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// CloudMetrics aggregates platform counts on a private registry and ships
// them through the configured pusher. It never writes to the default
// registerer so scrape metrics stay separate from pushed accounting.
type CloudMetrics struct {
	registry *prometheus.Registry
	pusher   Pusher
	logger   *zap.Logger

	memorySys           prometheus.Gauge
	customersTotal      prometheus.Gauge
	activeSubscriptions prometheus.Gauge
	unpaidInvoices      prometheus.Gauge
	onlineDevices       prometheus.Gauge
	openAlarms          *prometheus.GaugeVec
}

// New builds the accounting collector. A nil registry allocates a private one.
func New(registry *prometheus.Registry, pusher Pusher, instanceID, version string, logger *zap.Logger) *CloudMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	instance := strings.TrimSpace(instanceID)
	if instance == "" {
		instance = "default"
	}
	constLabels := prometheus.Labels{
		"instance_id": instance,
		"version":     strings.TrimSpace(version),
	}

	memorySys := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "arus_platform_memory_sys_bytes",
		Help:        "Memory obtained from the OS by the process.",
		ConstLabels: constLabels,
	})
	customersTotal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "arus_platform_customers_total",
		Help:        "Registered customers.",
		ConstLabels: constLabels,
	})
	activeSubscriptions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "arus_platform_active_subscriptions",
		Help:        "Subscriptions currently in active status.",
		ConstLabels: constLabels,
	})
	unpaidInvoices := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "arus_platform_unpaid_invoices",
		Help:        "Invoices awaiting payment.",
		ConstLabels: constLabels,
	})
	onlineDevices := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "arus_platform_online_devices",
		Help:        "Network devices currently online.",
		ConstLabels: constLabels,
	})
	openAlarms := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "arus_platform_open_alarms",
		Help:        "Unresolved alarms by severity.",
		ConstLabels: constLabels,
	}, []string{"severity"})

	registry.MustRegister(
		memorySys,
		customersTotal,
		activeSubscriptions,
		unpaidInvoices,
		onlineDevices,
		openAlarms,
	)

	return &CloudMetrics{
		registry:            registry,
		pusher:              pusher,
		logger:              logger,
		memorySys:           memorySys,
		customersTotal:      customersTotal,
		activeSubscriptions: activeSubscriptions,
		unpaidInvoices:      unpaidInvoices,
		onlineDevices:       onlineDevices,
		openAlarms:          openAlarms,
	}
}

// Push ships the current registry snapshot through the pusher.
func (c *CloudMetrics) Push(ctx context.Context) error {
	if c == nil || c.pusher == nil {
		return nil
	}
	return c.pusher.Push(ctx, c.registry)
}

func (c *CloudMetrics) SetMemoryUsage(sysBytes uint64) {
	if c == nil {
		return
	}
	c.memorySys.Set(float64(sysBytes))
}

func (c *CloudMetrics) SetCustomersTotal(count int64) {
	if c == nil {
		return
	}
	c.customersTotal.Set(float64(count))
}

func (c *CloudMetrics) SetActiveSubscriptions(count int64) {
	if c == nil {
		return
	}
	c.activeSubscriptions.Set(float64(count))
}

func (c *CloudMetrics) SetUnpaidInvoices(count int64) {
	if c == nil {
		return
	}
	c.unpaidInvoices.Set(float64(count))
}

func (c *CloudMetrics) SetOnlineDevices(count int64) {
	if c == nil {
		return
	}
	c.onlineDevices.Set(float64(count))
}

func (c *CloudMetrics) SetOpenAlarms(severity string, count int64) {
	if c == nil {
		return
	}
	severity = strings.ToLower(strings.TrimSpace(severity))
	if severity == "" {
		severity = "unknown"
	}
	c.openAlarms.WithLabelValues(severity).Set(float64(count))
}
