package domain

import (
	"context"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pkg *InternetPackage) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InternetPackage, error)
	Update(ctx context.Context, db *gorm.DB, pkg *InternetPackage) error
	List(ctx context.Context, db *gorm.DB, filter ListPackageFilter, page pagination.Pagination) ([]*InternetPackage, error)
	CountActiveSubscriptions(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
