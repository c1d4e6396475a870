package service

import (
	"context"
	"strings"
	"time"

	"github.com/arusnet/arus/internal/invoice/domain"
	"github.com/arusnet/arus/internal/invoice/format"
	"github.com/arusnet/arus/pkg/db"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultDueDays = 7

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
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Issue(ctx context.Context, req domain.IssueInvoiceRequest) (domain.Invoice, error) {
	subscriptionID, err := snowflake.ParseString(strings.TrimSpace(req.SubscriptionID))
	if err != nil || subscriptionID == 0 {
		return domain.Invoice{}, domain.ErrInvalidSubscription
	}

	var row struct {
		ID    snowflake.ID `gorm:"column:id"`
		Price int64        `gorm:"column:price"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT cs.id, ip.price
		 FROM customer_subscriptions cs
		 JOIN internet_packages ip ON ip.id = cs.package_id
		 WHERE cs.id = ?`,
		subscriptionID,
	).Scan(&row).Error; err != nil {
		return domain.Invoice{}, err
	}
	if row.ID == 0 {
		return domain.Invoice{}, domain.ErrSubscriptionNotFound
	}

	amount := req.Amount
	if amount == 0 {
		amount = row.Price
	}
	if amount < 0 {
		return domain.Invoice{}, domain.ErrInvalidAmount
	}

	dueDays := req.DueDays
	if dueDays <= 0 {
		dueDays = defaultDueDays
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		ID:             s.genID.Generate(),
		SubscriptionID: subscriptionID,
		Amount:         amount,
		Status:         domain.InvoiceStatusPending,
		DueDate:        now.AddDate(0, 0, dueDays),
		IssuedDate:     now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.XenditInvoiceID != nil && strings.TrimSpace(*req.XenditInvoiceID) != "" {
		id := strings.TrimSpace(*req.XenditInvoiceID)
		invoice.XenditInvoiceID = &id
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := s.repo.NextSequence(ctx, tx, now.Format("200601"))
		if err != nil {
			return err
		}
		number, err := format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, now, seq)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
		return s.repo.Insert(ctx, tx, &invoice)
	}); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Invoice{}, domain.ErrGatewayIDTaken
		}
		return domain.Invoice{}, err
	}

	return invoice, nil
}

func (s *Service) AttachGatewayInvoice(ctx context.Context, req domain.AttachGatewayInvoiceRequest) (domain.Invoice, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Invoice{}, err
	}

	xenditID := strings.TrimSpace(req.XenditInvoiceID)
	if xenditID == "" {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if item == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}

	now := time.Now().UTC()
	if err := s.repo.AttachGatewayInvoice(ctx, s.db, id, xenditID, req.XenditData, now); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Invoice{}, domain.ErrGatewayIDTaken
		}
		return domain.Invoice{}, err
	}

	item.XenditInvoiceID = &xenditID
	if req.XenditData != nil {
		item.XenditData = datatypes.JSONMap(req.XenditData)
	}
	item.UpdatedAt = now
	return *item, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetInvoiceRequest) (domain.Invoice, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Invoice{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if item == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	filter := domain.ListInvoiceFilter{
		Status: strings.ToLower(strings.TrimSpace(req.Status)),
	}
	if value := strings.TrimSpace(req.SubscriptionID); value != "" {
		subscriptionID, err := snowflake.ParseString(value)
		if err != nil || subscriptionID == 0 {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidSubscription
		}
		filter.SubscriptionID = subscriptionID
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
		return domain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(invoice *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        invoice.ID.String(),
			CreatedAt: invoice.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	resp := domain.ListInvoiceResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) ExpireOverdue(ctx context.Context, now time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	expired := 0
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		overdue, err := s.repo.ClaimOverdue(ctx, tx, now, batchSize)
		if err != nil {
			return err
		}
		if len(overdue) == 0 {
			return nil
		}
		ids := make([]snowflake.ID, 0, len(overdue))
		for _, item := range overdue {
			ids = append(ids, item.ID)
		}
		affected, err := s.repo.MarkExpiredByIDs(ctx, tx, ids, now)
		if err != nil {
			return err
		}
		expired = int(affected)
		return nil
	}); err != nil {
		return 0, err
	}

	if expired > 0 {
		s.log.Info("expired overdue invoices", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
