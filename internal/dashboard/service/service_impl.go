package service

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alarmdomain "github.com/arusnet/arus/internal/alarm/domain"
	"github.com/arusnet/arus/internal/cache"
	"github.com/arusnet/arus/internal/dashboard/domain"
	devicedomain "github.com/arusnet/arus/internal/device/domain"
	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Stats     cache.DashboardStatsCache
	AlarmRepo alarmdomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	stats     cache.DashboardStatsCache
	alarmRepo alarmdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("dashboard.service"),
		stats:     p.Stats,
		alarmRepo: p.AlarmRepo,
	}
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	if s.stats != nil {
		if cached, ok := s.stats.Get(); ok {
			return cached, nil
		}
	}

	var stats domain.Stats
	db := s.db.WithContext(ctx)

	err := db.Raw(
		`SELECT COUNT(1) FROM network_devices WHERE status = ?`,
		string(devicedomain.DeviceStatusActive),
	).Scan(&stats.ConnectedDevices).Error
	if err != nil {
		return domain.Stats{}, err
	}

	err = db.Raw(
		`SELECT COUNT(1) FROM pppoe_sessions WHERE is_active = true`,
	).Scan(&stats.ActivePPPoEUsers).Error
	if err != nil {
		return domain.Stats{}, err
	}

	err = db.Raw(
		`SELECT COUNT(1) FROM hotspot_sessions WHERE is_active = true`,
	).Scan(&stats.ActiveHotspotUsers).Error
	if err != nil {
		return domain.Stats{}, err
	}

	err = db.Raw(
		`SELECT COUNT(1) FROM invoices WHERE status = ?`,
		string(invoicedomain.InvoiceStatusPending),
	).Scan(&stats.PendingPayments).Error
	if err != nil {
		return domain.Stats{}, err
	}

	stats.CriticalAlarms, err = s.alarmRepo.CountOpenBySeverity(ctx, s.db, alarmdomain.SeverityCritical)
	if err != nil {
		return domain.Stats{}, err
	}

	err = db.Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM invoices WHERE status = ?`,
		string(invoicedomain.InvoiceStatusPaid),
	).Scan(&stats.TotalRevenue).Error
	if err != nil {
		return domain.Stats{}, err
	}

	if s.stats != nil {
		s.stats.Set(stats)
	}
	return stats, nil
}
