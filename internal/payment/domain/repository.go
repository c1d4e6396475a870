package domain

import (
	"context"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertPayment writes the row keyed by xendit_payment_id and reports
	// whether it landed; false means the event was seen before.
	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	List(ctx context.Context, db *gorm.DB, filter ListPaymentFilter, page pagination.Pagination) ([]*Payment, error)

	InsertWebhookLog(ctx context.Context, db *gorm.DB, entry *WebhookLog) error
	MarkWebhookProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, result string, processedAt time.Time) error
	MarkWebhookFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, result string) error
}

type ListPaymentFilter struct {
	Status     string
	Method     string
	CustomerID snowflake.ID
	InvoiceID  snowflake.ID
}
