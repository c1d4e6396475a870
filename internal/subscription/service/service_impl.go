package service

import (
	"context"
	"errors"
	"strings"
	"time"

	customerdomain "github.com/arusnet/arus/internal/customer/domain"
	packagedomain "github.com/arusnet/arus/internal/internetpackage/domain"
	"github.com/arusnet/arus/internal/subscription/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Customers customerdomain.Service
	Packages  packagedomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	customers customerdomain.Service
	packages  packagedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("subscription.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		customers: p.Customers,
		packages:  p.Packages,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateSubscriptionRequest) (domain.CustomerSubscription, error) {
	customerID, err := s.parseID(req.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return domain.CustomerSubscription{}, err
	}
	packageID, err := s.parseID(req.PackageID, domain.ErrInvalidPackage)
	if err != nil {
		return domain.CustomerSubscription{}, err
	}

	customer, err := s.customers.GetByID(ctx, customerdomain.GetCustomerRequest{ID: req.CustomerID})
	if err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) {
			return domain.CustomerSubscription{}, domain.ErrCustomerNotFound
		}
		return domain.CustomerSubscription{}, err
	}
	if !customer.IsActive {
		return domain.CustomerSubscription{}, domain.ErrCustomerInactive
	}

	pkg, err := s.packages.GetByID(ctx, packagedomain.GetPackageRequest{ID: req.PackageID})
	if err != nil {
		if errors.Is(err, packagedomain.ErrNotFound) {
			return domain.CustomerSubscription{}, domain.ErrPackageNotFound
		}
		return domain.CustomerSubscription{}, err
	}
	if !pkg.IsActive {
		return domain.CustomerSubscription{}, domain.ErrPackageInactive
	}

	start := req.StartDate.UTC()
	if req.StartDate.IsZero() {
		start = time.Now().UTC()
	}
	end := start.AddDate(0, 0, pkg.ValidityDays)

	now := time.Now().UTC()
	subscription := domain.CustomerSubscription{
		ID:         s.genID.Generate(),
		CustomerID: customerID,
		PackageID:  packageID,
		StartDate:  start,
		EndDate:    end,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.LockCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrCustomerNotFound
		}
		overlap, err := s.repo.HasActiveOverlap(ctx, tx, customerID, start, end)
		if err != nil {
			return err
		}
		if overlap {
			return domain.ErrSubscriptionOverlap
		}
		return s.repo.Insert(ctx, tx, &subscription)
	}); err != nil {
		return domain.CustomerSubscription{}, err
	}

	return subscription, nil
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelSubscriptionRequest) (domain.CustomerSubscription, error) {
	id, err := s.parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.CustomerSubscription{}, err
	}

	var subscription domain.CustomerSubscription
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		if !item.IsActive {
			subscription = *item
			return nil
		}
		now := time.Now().UTC()
		if err := s.repo.Deactivate(ctx, tx, item.ID, now); err != nil {
			return err
		}
		item.IsActive = false
		item.UpdatedAt = now
		subscription = *item
		return nil
	}); err != nil {
		return domain.CustomerSubscription{}, err
	}

	return subscription, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetSubscriptionRequest) (domain.CustomerSubscription, error) {
	id, err := s.parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.CustomerSubscription{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.CustomerSubscription{}, err
	}
	if item == nil {
		return domain.CustomerSubscription{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSubscriptionRequest) (domain.ListSubscriptionResponse, error) {
	filter := domain.ListSubscriptionFilter{IsActive: req.IsActive}
	if value := strings.TrimSpace(req.CustomerID); value != "" {
		customerID, err := snowflake.ParseString(value)
		if err != nil || customerID == 0 {
			return domain.ListSubscriptionResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = customerID
	}
	if value := strings.TrimSpace(req.PackageID); value != "" {
		packageID, err := snowflake.ParseString(value)
		if err != nil || packageID == 0 {
			return domain.ListSubscriptionResponse{}, domain.ErrInvalidPackage
		}
		filter.PackageID = packageID
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
		return domain.ListSubscriptionResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.CustomerSubscription) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	subscriptions := make([]domain.CustomerSubscription, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		subscriptions = append(subscriptions, *item)
	}

	resp := domain.ListSubscriptionResponse{Subscriptions: subscriptions}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) ExpireDue(ctx context.Context, now time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	expired := 0
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		due, err := s.repo.ClaimDue(ctx, tx, now, batchSize)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}
		ids := make([]snowflake.ID, 0, len(due))
		for _, item := range due {
			ids = append(ids, item.ID)
		}
		affected, err := s.repo.DeactivateByIDs(ctx, tx, ids, now)
		if err != nil {
			return err
		}
		expired = int(affected)
		return nil
	}); err != nil {
		return 0, err
	}

	if expired > 0 {
		s.log.Info("expired subscriptions", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *Service) parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
