package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/audit/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.ActivityLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO activity_logs (
			id, user_id, action, resource_type, resource_id, description,
			ip_address, user_agent, additional_data, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.Description,
		entry.IPAddress,
		entry.UserAgent,
		entry.AdditionalData,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListActivityFilter, page pagination.Pagination) ([]*domain.ActivityLog, error) {
	var logs []*domain.ActivityLog
	stmt := db.WithContext(ctx).Model(&domain.ActivityLog{})
	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		stmt = stmt.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		stmt = stmt.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		stmt = stmt.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.Since != nil {
		stmt = stmt.Where("created_at >= ?", filter.Since.UTC())
	}
	if filter.Until != nil {
		stmt = stmt.Where("created_at < ?", filter.Until.UTC())
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
