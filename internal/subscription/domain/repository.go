package domain

import (
	"context"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *CustomerSubscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CustomerSubscription, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CustomerSubscription, error)
	LockCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (bool, error)
	HasActiveOverlap(ctx context.Context, db *gorm.DB, customerID snowflake.ID, start, end time.Time) (bool, error)
	Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	ClaimDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*CustomerSubscription, error)
	DeactivateByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID, now time.Time) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListSubscriptionFilter, page pagination.Pagination) ([]*CustomerSubscription, error)
}
