package repository

import (
	"context"
	"time"

	"github.com/arusnet/arus/internal/invoice/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (id, invoice_number, subscription_id, xendit_invoice_id, amount,
			status, due_date, issued_date, paid_date, xendit_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.SubscriptionID,
		invoice.XenditInvoiceID,
		invoice.Amount,
		invoice.Status,
		invoice.DueDate,
		invoice.IssuedDate,
		invoice.PaidDate,
		invoice.XenditData,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_number, subscription_id, xendit_invoice_id, amount, status,
			due_date, issued_date, paid_date, xendit_data, created_at, updated_at
		 FROM invoices WHERE id = ?`,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, monthKey string) (int64, error) {
	var number int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO invoice_sequences (month_key, last_number)
		 VALUES (?, 1)
		 ON CONFLICT (month_key) DO UPDATE SET last_number = invoice_sequences.last_number + 1
		 RETURNING last_number`,
		monthKey,
	).Scan(&number).Error
	if err != nil {
		return 0, err
	}
	return number, nil
}

func (r *repo) AttachGatewayInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID, xenditInvoiceID string, data map[string]any, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET xendit_invoice_id = ?, xendit_data = ?, updated_at = ? WHERE id = ?`,
		xenditInvoiceID,
		datatypes.JSONMap(data),
		now,
		id,
	).Error
}

func (r *repo) ClaimOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*domain.Invoice, error) {
	query := `SELECT id, invoice_number, subscription_id, xendit_invoice_id, amount, status,
			due_date, issued_date, paid_date, xendit_data, created_at, updated_at
		 FROM invoices
		 WHERE status = ? AND due_date < ?
		 ORDER BY due_date ASC, id ASC`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE SKIP LOCKED"
	}
	query += " LIMIT ?"

	var invoices []*domain.Invoice
	err := db.WithContext(ctx).Raw(query, domain.InvoiceStatusPending, now, limit).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) MarkExpiredByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id IN ? AND status = ?`,
		domain.InvoiceStatusExpired,
		now,
		ids,
		domain.InvoiceStatusPending,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.SubscriptionID != 0 {
		stmt = stmt.Where("subscription_id = ?", filter.SubscriptionID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
