package repository

import (
	"context"
	"time"

	"github.com/arusnet/arus/internal/payment/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, payment_id, customer_id, invoice_id, xendit_payment_id,
			amount, payment_method, status, payment_date, xendit_webhook_data,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (xendit_payment_id) DO NOTHING`,
		payment.ID,
		payment.PaymentID,
		payment.CustomerID,
		payment.InvoiceID,
		payment.XenditPaymentID,
		payment.Amount,
		payment.PaymentMethod,
		payment.Status,
		payment.PaymentDate,
		payment.XenditWebhookData,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, payment_id, customer_id, invoice_id, xendit_payment_id,
			amount, payment_method, status, payment_date, xendit_webhook_data,
			created_at, updated_at
		 FROM payments
		 WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPaymentFilter, page pagination.Pagination) ([]*domain.Payment, error) {
	stmt := db.WithContext(ctx).Model(&domain.Payment{})

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Method != "" {
		stmt = stmt.Where("payment_method = ?", filter.Method)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.InvoiceID != 0 {
		stmt = stmt.Where("invoice_id = ?", filter.InvoiceID)
	}

	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Payment
	if err := stmt.Order("created_at desc, id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertWebhookLog(ctx context.Context, db *gorm.DB, entry *domain.WebhookLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO webhook_logs (
			id, source, event_type, payload, headers, processed,
			processing_result, processed_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Source,
		entry.EventType,
		entry.Payload,
		entry.Headers,
		entry.Processed,
		entry.ProcessingResult,
		entry.ProcessedAt,
		entry.CreatedAt,
	).Error
}

func (r *repo) MarkWebhookProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, result string, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_logs
		 SET processed = ?, processing_result = ?, processed_at = ?
		 WHERE id = ?`,
		true,
		result,
		processedAt,
		id,
	).Error
}

func (r *repo) MarkWebhookFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, result string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_logs
		 SET processing_result = ?
		 WHERE id = ?`,
		result,
		id,
	).Error
}
