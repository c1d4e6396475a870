package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/arusnet/arus/pkg/db/pagination"
)

type ListActivityFilter struct {
	UserID       snowflake.ID
	Action       string
	ResourceType string
	ResourceID   string
	Since        *time.Time
	Until        *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *ActivityLog) error
	List(ctx context.Context, db *gorm.DB, filter ListActivityFilter, page pagination.Pagination) ([]*ActivityLog, error)
}
