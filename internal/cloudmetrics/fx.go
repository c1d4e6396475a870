package cloudmetrics

import (
	"context"
	"runtime"
	"time"

	"github.com/arusnet/arus/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("cloud.metrics",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewPusher),
	fx.Provide(func(cfg config.Config, registry *prometheus.Registry, pusher Pusher, logger *zap.Logger) *CloudMetrics {
		if !cfg.Monitoring.Enabled || pusher == nil {
			return nil
		}
		return New(registry, pusher, cfg.InstanceID, cfg.AppVersion, logger)
	}),
	fx.Invoke(func(lc fx.Lifecycle, c *CloudMetrics, logger *zap.Logger, conn *gorm.DB) {
		if c == nil {
			return
		}

		if logger == nil {
			logger = zap.NewNop()
		}

		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				logger.Info("starting platform metrics background worker")
				go func() {
					ticker := time.NewTicker(30 * time.Minute)
					defer ticker.Stop()

					// Initial push
					updateSystemMetrics(c)
					updatePlatformCounts(ctx, c, conn)
					if err := c.Push(ctx); err != nil {
						logger.Error("initial platform metrics push failed", zap.Error(err))
					}

					for {
						select {
						case <-ticker.C:
							updateSystemMetrics(c)
							updatePlatformCounts(ctx, c, conn)
							if err := c.Push(ctx); err != nil {
								logger.Error("periodic platform metrics push failed", zap.Error(err))
							}
						case <-ctx.Done():
							logger.Info("stopping platform metrics background worker")
							return
						}
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)

func updateSystemMetrics(c *CloudMetrics) {
	if c == nil {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.SetMemoryUsage(m.Sys)
}

func updatePlatformCounts(ctx context.Context, c *CloudMetrics, conn *gorm.DB) {
	if c == nil || conn == nil {
		return
	}

	var count int64
	if err := conn.WithContext(ctx).Table("customers").Count(&count).Error; err == nil {
		c.SetCustomersTotal(count)
	}
	if err := conn.WithContext(ctx).Table("customer_subscriptions").Where("is_active = ?", true).Count(&count).Error; err == nil {
		c.SetActiveSubscriptions(count)
	}
	if err := conn.WithContext(ctx).Table("invoices").Where("status = ?", "pending").Count(&count).Error; err == nil {
		c.SetUnpaidInvoices(count)
	}
	if err := conn.WithContext(ctx).Table("network_devices").Where("status = ?", "active").Count(&count).Error; err == nil {
		c.SetOnlineDevices(count)
	}

	var rows []struct {
		Severity string `gorm:"column:severity"`
		Total    int64  `gorm:"column:total"`
	}
	err := conn.WithContext(ctx).
		Table("device_alarms").
		Select("severity, COUNT(*) AS total").
		Where("resolved = ?", false).
		Group("severity").
		Scan(&rows).Error
	if err == nil {
		for _, row := range rows {
			c.SetOpenAlarms(row.Severity, row.Total)
		}
	}
}
