package domain

import (
	"context"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, alarm *DeviceAlarm) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*DeviceAlarm, error)
	// FindByIDForUpdate locks the alarm row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*DeviceAlarm, error)
	MarkAcknowledged(ctx context.Context, db *gorm.DB, id snowflake.ID, by string, at time.Time) error
	MarkResolved(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	CountOpenBySeverity(ctx context.Context, db *gorm.DB, severity AlarmSeverity) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListAlarmFilter, page pagination.Pagination) ([]*DeviceAlarm, error)
}

type ListAlarmFilter struct {
	DeviceID     snowflake.ID
	Severity     string
	Resolved     *bool
	Acknowledged *bool
}
