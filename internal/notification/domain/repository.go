package domain

import (
	"context"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertTemplate(ctx context.Context, db *gorm.DB, tpl *NotificationTemplate) error
	FindTemplateByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*NotificationTemplate, error)
	FindTemplateByName(ctx context.Context, db *gorm.DB, name string) (*NotificationTemplate, error)
	UpdateTemplate(ctx context.Context, db *gorm.DB, tpl *NotificationTemplate) error
	ListTemplates(ctx context.Context, db *gorm.DB, filter ListTemplateFilter, page pagination.Pagination) ([]*NotificationTemplate, error)

	InsertNotification(ctx context.Context, db *gorm.DB, item *NotificationQueue) error
	FindNotificationByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*NotificationQueue, error)
	ListNotifications(ctx context.Context, db *gorm.DB, filter ListNotificationFilter, page pagination.Pagination) ([]*NotificationQueue, error)

	// ClaimReady locks and returns pending rows due at now, highest
	// priority (lowest number) first.
	ClaimReady(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*NotificationQueue, error)
	RecordSuccess(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	// RecordFailure increments attempts and fails the row once attempts
	// exceed retryCeiling.
	RecordFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, errMsg string, retryCeiling int32) error
}

type ListTemplateFilter struct {
	NotificationType string
	IsActive         *bool
}

type ListNotificationFilter struct {
	NotificationType string
	Status           string
	Recipient        string
}
