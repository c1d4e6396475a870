package repository

import (
	"context"

	"github.com/arusnet/arus/internal/traffic/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sample *domain.TrafficMonitor) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO traffic_monitors (id, device_id, interface_name, bytes_in, bytes_out,
			packets_in, packets_out, errors_in, errors_out, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.ID,
		sample.DeviceID,
		sample.InterfaceName,
		sample.BytesIn,
		sample.BytesOut,
		sample.PacketsIn,
		sample.PacketsOut,
		sample.ErrorsIn,
		sample.ErrorsOut,
		sample.Timestamp,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListTrafficFilter, page pagination.Pagination) ([]*domain.TrafficMonitor, error) {
	var samples []*domain.TrafficMonitor
	stmt := db.WithContext(ctx).Model(&domain.TrafficMonitor{})
	if filter.DeviceID != 0 {
		stmt = stmt.Where("device_id = ?", filter.DeviceID)
	}
	if filter.InterfaceName != "" {
		stmt = stmt.Where("interface_name = ?", filter.InterfaceName)
	}
	if filter.Since != nil {
		stmt = stmt.Where("timestamp >= ?", *filter.Since)
	}
	if filter.Until != nil {
		stmt = stmt.Where("timestamp < ?", *filter.Until)
	}
	// Samples carry their own capture time, so the cursor runs on it.
	stmt = option.ApplyPaginationOn("timestamp", page).Apply(stmt)
	err := stmt.
		Order("timestamp desc, id desc").
		Find(&samples).Error
	if err != nil {
		return nil, err
	}
	return samples, nil
}
