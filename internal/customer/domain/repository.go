package domain

import (
	"context"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Customer, error)
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
}
