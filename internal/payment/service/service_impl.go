package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	"github.com/arusnet/arus/internal/payment/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) ApplyPaymentWebhook(ctx context.Context, event *domain.PaymentEvent) error {
	if event == nil {
		return domain.ErrInvalidEvent
	}
	xenditInvoiceID := strings.TrimSpace(event.XenditInvoiceID)
	if xenditInvoiceID == "" {
		return domain.ErrInvalidEvent
	}
	xenditPaymentID := strings.TrimSpace(event.XenditPaymentID)
	if xenditPaymentID == "" {
		return domain.ErrInvalidEvent
	}
	invoiceStatus, paymentStatus, err := mapGatewayStatus(event.Status)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var payment domain.Payment

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.lockInvoiceByGatewayID(ctx, tx, xenditInvoiceID)
		if err != nil {
			return err
		}
		if invoice.ID == 0 {
			return domain.ErrInvoiceNotFound
		}

		var customerID snowflake.ID
		if err := tx.WithContext(ctx).Raw(
			`SELECT customer_id
			 FROM customer_subscriptions
			 WHERE id = ?`,
			invoice.SubscriptionID,
		).Scan(&customerID).Error; err != nil {
			return err
		}
		if customerID == 0 {
			return domain.ErrInvalidEvent
		}

		amount := event.Amount
		if amount <= 0 {
			amount = invoice.Amount
		}

		payment = domain.Payment{
			ID:              s.genID.Generate(),
			PaymentID:       "PAY-" + ulid.Make().String(),
			CustomerID:      customerID,
			InvoiceID:       invoice.ID,
			XenditPaymentID: xenditPaymentID,
			Amount:          amount,
			PaymentMethod:   domain.NormalizePaymentMethod(event.PaymentMethod),
			Status:          paymentStatus,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if paymentStatus == domain.PaymentStatusPaid {
			paidAt := event.PaidAt
			if paidAt.IsZero() {
				paidAt = now
			}
			payment.PaymentDate = &paidAt
		}
		if len(event.RawPayload) > 0 {
			var data map[string]any
			if err := json.Unmarshal(event.RawPayload, &data); err == nil {
				payment.XenditWebhookData = datatypes.JSONMap(data)
			}
		}

		inserted, err := s.repo.InsertPayment(ctx, tx, &payment)
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrEventAlreadyProcessed
		}

		if !invoicedomain.CanTransition(invoice.Status, invoiceStatus) {
			return domain.ErrInvalidState
		}

		if invoiceStatus == invoicedomain.InvoiceStatusPaid {
			return tx.WithContext(ctx).Exec(
				`UPDATE invoices
				 SET status = ?, paid_date = ?, updated_at = ?
				 WHERE id = ?`,
				invoiceStatus,
				payment.PaymentDate,
				now,
				invoice.ID,
			).Error
		}
		return tx.WithContext(ctx).Exec(
			`UPDATE invoices
			 SET status = ?, updated_at = ?
			 WHERE id = ?`,
			invoiceStatus,
			now,
			invoice.ID,
		).Error
	}); err != nil {
		return err
	}

	s.log.Info("payment reconciled",
		zap.String("payment_id", payment.PaymentID),
		zap.String("xendit_payment_id", xenditPaymentID),
		zap.String("status", string(paymentStatus)),
		zap.Int64("amount", payment.Amount),
	)
	return nil
}

func mapGatewayStatus(status string) (invoicedomain.InvoiceStatus, domain.PaymentStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case domain.GatewayStatusPaid, domain.GatewayStatusSettled:
		return invoicedomain.InvoiceStatusPaid, domain.PaymentStatusPaid, nil
	case domain.GatewayStatusExpired:
		return invoicedomain.InvoiceStatusExpired, domain.PaymentStatusExpired, nil
	case domain.GatewayStatusFailed:
		return invoicedomain.InvoiceStatusFailed, domain.PaymentStatusFailed, nil
	}
	return "", "", domain.ErrInvalidEvent
}

type lockedInvoice struct {
	ID             snowflake.ID                `gorm:"column:id"`
	SubscriptionID snowflake.ID                `gorm:"column:subscription_id"`
	Amount         int64                       `gorm:"column:amount"`
	Status         invoicedomain.InvoiceStatus `gorm:"column:status"`
}

func (s *Service) lockInvoiceByGatewayID(ctx context.Context, tx *gorm.DB, xenditInvoiceID string) (lockedInvoice, error) {
	query := `SELECT id, subscription_id, amount, status
	 FROM invoices
	 WHERE xendit_invoice_id = ?`
	if tx.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var row lockedInvoice
	if err := tx.WithContext(ctx).Raw(query, xenditInvoiceID).Scan(&row).Error; err != nil {
		return lockedInvoice{}, err
	}
	return row, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetPaymentRequest) (domain.Payment, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Payment{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Payment{}, err
	}
	if item == nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPaymentRequest) (domain.ListPaymentResponse, error) {
	filter := domain.ListPaymentFilter{
		Status: strings.ToLower(strings.TrimSpace(req.Status)),
		Method: strings.ToLower(strings.TrimSpace(req.Method)),
	}
	if value := strings.TrimSpace(req.CustomerID); value != "" {
		customerID, err := snowflake.ParseString(value)
		if err != nil || customerID == 0 {
			return domain.ListPaymentResponse{}, domain.ErrInvalidID
		}
		filter.CustomerID = customerID
	}
	if value := strings.TrimSpace(req.InvoiceID); value != "" {
		invoiceID, err := snowflake.ParseString(value)
		if err != nil || invoiceID == 0 {
			return domain.ListPaymentResponse{}, domain.ErrInvalidID
		}
		filter.InvoiceID = invoiceID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListPaymentResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(payment *domain.Payment) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        payment.ID.String(),
			CreatedAt: payment.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}

	resp := domain.ListPaymentResponse{Payments: payments}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}
