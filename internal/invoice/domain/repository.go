package domain

import (
	"context"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	NextSequence(ctx context.Context, db *gorm.DB, monthKey string) (int64, error)
	AttachGatewayInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID, xenditInvoiceID string, data map[string]any, now time.Time) error
	ClaimOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*Invoice, error)
	MarkExpiredByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID, now time.Time) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
}
