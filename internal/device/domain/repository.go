package domain

import (
	"context"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, device *NetworkDevice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*NetworkDevice, error)
	Update(ctx context.Context, db *gorm.DB, device *NetworkDevice) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	CountChildren(ctx context.Context, db *gorm.DB, parentID snowflake.ID) (int64, error)
	ListChildren(ctx context.Context, db *gorm.DB, parentID snowflake.ID) ([]*NetworkDevice, error)
	StampHeartbeat(ctx context.Context, db *gorm.DB, id snowflake.ID, status DeviceStatus, at time.Time) error
	List(ctx context.Context, db *gorm.DB, filter ListDeviceFilter, page pagination.Pagination) ([]*NetworkDevice, error)

	InsertConnection(ctx context.Context, db *gorm.DB, conn *DeviceConnection) error
	FindConnectionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*DeviceConnection, error)
	DeleteConnection(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	ListConnectionsTouching(ctx context.Context, db *gorm.DB, deviceIDs []snowflake.ID) ([]*DeviceConnection, error)
	ListConnections(ctx context.Context, db *gorm.DB, filter ListConnectionFilter, page pagination.Pagination) ([]*DeviceConnection, error)
}

type ListDeviceFilter struct {
	DeviceType string
	Status     string
	ParentID   snowflake.ID
	Name       string
}

type ListConnectionFilter struct {
	// DeviceID matches either endpoint.
	DeviceID snowflake.ID
	IsActive *bool
}
