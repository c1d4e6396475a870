package repository

import (
	"context"
	"time"

	"github.com/arusnet/arus/internal/notification/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTemplate(ctx context.Context, db *gorm.DB, tpl *domain.NotificationTemplate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notification_templates (id, name, notification_type, subject, template,
			is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.ID,
		tpl.Name,
		tpl.NotificationType,
		tpl.Subject,
		tpl.Template,
		tpl.IsActive,
		tpl.CreatedAt,
		tpl.UpdatedAt,
	).Error
}

func (r *repo) FindTemplateByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.NotificationTemplate, error) {
	var tpl domain.NotificationTemplate
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, notification_type, subject, template, is_active, created_at, updated_at
		 FROM notification_templates WHERE id = ?`,
		id,
	).Scan(&tpl).Error
	if err != nil {
		return nil, err
	}
	if tpl.ID == 0 {
		return nil, nil
	}
	return &tpl, nil
}

func (r *repo) FindTemplateByName(ctx context.Context, db *gorm.DB, name string) (*domain.NotificationTemplate, error) {
	var tpl domain.NotificationTemplate
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, notification_type, subject, template, is_active, created_at, updated_at
		 FROM notification_templates WHERE name = ?`,
		name,
	).Scan(&tpl).Error
	if err != nil {
		return nil, err
	}
	if tpl.ID == 0 {
		return nil, nil
	}
	return &tpl, nil
}

func (r *repo) UpdateTemplate(ctx context.Context, db *gorm.DB, tpl *domain.NotificationTemplate) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_templates
		 SET subject = ?, template = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		tpl.Subject,
		tpl.Template,
		tpl.IsActive,
		tpl.UpdatedAt,
		tpl.ID,
	).Error
}

func (r *repo) ListTemplates(ctx context.Context, db *gorm.DB, filter domain.ListTemplateFilter, page pagination.Pagination) ([]*domain.NotificationTemplate, error) {
	var tpls []*domain.NotificationTemplate
	stmt := db.WithContext(ctx).Model(&domain.NotificationTemplate{})
	if filter.NotificationType != "" {
		stmt = stmt.Where("notification_type = ?", filter.NotificationType)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&tpls).Error
	if err != nil {
		return nil, err
	}
	return tpls, nil
}

func (r *repo) InsertNotification(ctx context.Context, db *gorm.DB, item *domain.NotificationQueue) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notification_queue (id, notification_type, recipient, subject, message,
			priority, status, attempts, last_attempt, scheduled_at, sent_at, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.NotificationType,
		item.Recipient,
		item.Subject,
		item.Message,
		item.Priority,
		item.Status,
		item.Attempts,
		item.LastAttempt,
		item.ScheduledAt,
		item.SentAt,
		item.ErrorMessage,
		item.CreatedAt,
	).Error
}

func (r *repo) FindNotificationByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.NotificationQueue, error) {
	var item domain.NotificationQueue
	err := db.WithContext(ctx).Raw(
		`SELECT id, notification_type, recipient, subject, message, priority, status,
			attempts, last_attempt, scheduled_at, sent_at, error_message, created_at
		 FROM notification_queue WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListNotifications(ctx context.Context, db *gorm.DB, filter domain.ListNotificationFilter, page pagination.Pagination) ([]*domain.NotificationQueue, error) {
	var items []*domain.NotificationQueue
	stmt := db.WithContext(ctx).Model(&domain.NotificationQueue{})
	if filter.NotificationType != "" {
		stmt = stmt.Where("notification_type = ?", filter.NotificationType)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Recipient != "" {
		stmt = stmt.Where("recipient = ?", filter.Recipient)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ClaimReady(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*domain.NotificationQueue, error) {
	query := `SELECT id, notification_type, recipient, subject, message, priority, status,
			attempts, last_attempt, scheduled_at, sent_at, error_message, created_at
		 FROM notification_queue
		 WHERE status = ? AND scheduled_at <= ?
		 ORDER BY priority ASC, scheduled_at ASC, id ASC`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE SKIP LOCKED"
	}
	query += " LIMIT ?"

	var items []*domain.NotificationQueue
	err := db.WithContext(ctx).Raw(query, domain.NotificationStatusPending, now, limit).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) RecordSuccess(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_queue
		 SET attempts = attempts + 1, last_attempt = ?, status = ?, sent_at = ?, error_message = ''
		 WHERE id = ?`,
		at,
		domain.NotificationStatusSent,
		at,
		id,
	).Error
}

func (r *repo) RecordFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, errMsg string, retryCeiling int32) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notification_queue
		 SET attempts = attempts + 1, last_attempt = ?, error_message = ?,
			status = CASE WHEN attempts + 1 > ? THEN ? ELSE ? END
		 WHERE id = ?`,
		at,
		errMsg,
		retryCeiling,
		domain.NotificationStatusFailed,
		domain.NotificationStatusPending,
		id,
	).Error
}
