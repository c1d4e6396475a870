package domain

import (
	"context"

	"github.com/arusnet/arus/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *SystemLog) error
	List(ctx context.Context, db *gorm.DB, filter ListLogFilter, page pagination.Pagination) ([]*SystemLog, error)
}

type ListLogFilter struct {
	Level  string
	Source string
}
