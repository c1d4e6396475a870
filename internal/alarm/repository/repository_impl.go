package repository

import (
	"context"
	"time"

	"github.com/arusnet/arus/internal/alarm/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const alarmColumns = `id, device_id, alarm_type, severity, message, is_acknowledged,
	acknowledged_by, acknowledged_at, resolved, resolved_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, alarm *domain.DeviceAlarm) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO device_alarms (id, device_id, alarm_type, severity, message, is_acknowledged,
			acknowledged_by, acknowledged_at, resolved, resolved_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alarm.ID,
		alarm.DeviceID,
		alarm.AlarmType,
		alarm.Severity,
		alarm.Message,
		alarm.IsAcknowledged,
		alarm.AcknowledgedBy,
		alarm.AcknowledgedAt,
		alarm.Resolved,
		alarm.ResolvedAt,
		alarm.CreatedAt,
		alarm.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.DeviceAlarm, error) {
	return r.findByID(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.DeviceAlarm, error) {
	return r.findByID(ctx, db, id, true)
}

func (r *repo) findByID(ctx context.Context, db *gorm.DB, id snowflake.ID, lock bool) (*domain.DeviceAlarm, error) {
	query := `SELECT ` + alarmColumns + ` FROM device_alarms WHERE id = ?`
	if lock && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var alarm domain.DeviceAlarm
	err := db.WithContext(ctx).Raw(query, id).Scan(&alarm).Error
	if err != nil {
		return nil, err
	}
	if alarm.ID == 0 {
		return nil, nil
	}
	return &alarm, nil
}

func (r *repo) MarkAcknowledged(ctx context.Context, db *gorm.DB, id snowflake.ID, by string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE device_alarms
		 SET is_acknowledged = true, acknowledged_by = ?, acknowledged_at = ?, updated_at = ?
		 WHERE id = ?`,
		by,
		at,
		at,
		id,
	).Error
}

func (r *repo) MarkResolved(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE device_alarms
		 SET resolved = true, resolved_at = ?, updated_at = ?
		 WHERE id = ?`,
		at,
		at,
		id,
	).Error
}

func (r *repo) CountOpenBySeverity(ctx context.Context, db *gorm.DB, severity domain.AlarmSeverity) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM device_alarms WHERE severity = ? AND resolved = false`,
		severity,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListAlarmFilter, page pagination.Pagination) ([]*domain.DeviceAlarm, error) {
	var alarms []*domain.DeviceAlarm
	stmt := db.WithContext(ctx).Model(&domain.DeviceAlarm{})
	if filter.DeviceID != 0 {
		stmt = stmt.Where("device_id = ?", filter.DeviceID)
	}
	if filter.Severity != "" {
		stmt = stmt.Where("severity = ?", filter.Severity)
	}
	if filter.Resolved != nil {
		stmt = stmt.Where("resolved = ?", *filter.Resolved)
	}
	if filter.Acknowledged != nil {
		stmt = stmt.Where("is_acknowledged = ?", *filter.Acknowledged)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&alarms).Error
	if err != nil {
		return nil, err
	}
	return alarms, nil
}
