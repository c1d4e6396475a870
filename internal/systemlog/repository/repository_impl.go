package repository

import (
	"context"

	"github.com/arusnet/arus/internal/systemlog/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.SystemLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO system_logs (id, level, source, message, error_details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Level,
		entry.Source,
		entry.Message,
		entry.ErrorDetails,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListLogFilter, page pagination.Pagination) ([]*domain.SystemLog, error) {
	stmt := db.WithContext(ctx).Model(&domain.SystemLog{})

	if filter.Level != "" {
		stmt = stmt.Where("level = ?", filter.Level)
	}
	if filter.Source != "" {
		stmt = stmt.Where("source = ?", filter.Source)
	}

	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.SystemLog
	if err := stmt.Order("created_at desc, id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
