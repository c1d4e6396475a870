package domain

import (
	"context"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sample *TrafficMonitor) error
	List(ctx context.Context, db *gorm.DB, filter ListTrafficFilter, page pagination.Pagination) ([]*TrafficMonitor, error)
}

type ListTrafficFilter struct {
	DeviceID      snowflake.ID
	InterfaceName string
	Since         *time.Time
	Until         *time.Time
}
