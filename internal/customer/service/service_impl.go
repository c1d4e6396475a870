package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	"github.com/arusnet/arus/internal/authctx"
	"github.com/arusnet/arus/internal/customer/domain"
	"github.com/arusnet/arus/pkg/db"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	codeMaxLen     = 20
	codeBaseMaxLen = 14
	codeAttempts   = 5
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	audit auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	connectionType := domain.ConnectionType(strings.ToLower(strings.TrimSpace(req.ConnectionType)))
	if !connectionType.Valid() {
		return domain.Customer{}, domain.ErrInvalidConnectionType
	}

	var createdBy snowflake.ID
	if actor, ok := authctx.ActorFromContext(ctx); ok {
		createdBy = actor.UserID
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:             s.genID.Generate(),
		Name:           name,
		Email:          email,
		Phone:          strings.TrimSpace(req.Phone),
		Address:        strings.TrimSpace(req.Address),
		ConnectionType: connectionType,
		IsActive:       true,
		CreatedByID:    createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	code := strings.TrimSpace(req.CustomerCode)
	if code != "" {
		if len(code) > codeMaxLen {
			return domain.Customer{}, domain.ErrInvalidName
		}
		customer.CustomerCode = code
		if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.Customer{}, domain.ErrCodeTaken
			}
			return domain.Customer{}, err
		}
		return customer, nil
	}

	base := slug.Make(name)
	if len(base) > codeBaseMaxLen {
		base = strings.Trim(base[:codeBaseMaxLen], "-")
	}
	if base == "" {
		base = "cust"
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s-%d", base, attempt+1)
		}
		customer.CustomerCode = candidate
		err := s.repo.Insert(ctx, s.db, &customer)
		if err == nil {
			s.emitAudit(ctx, "customer.created", &customer)
			return customer, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, err
		}
	}

	// Heavily reused names fall back to an id-derived code.
	customer.CustomerCode = fmt.Sprintf("c-%d", customer.ID%100000000)
	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrCodeTaken
		}
		return domain.Customer{}, err
	}
	s.emitAudit(ctx, "customer.created", &customer)
	return customer, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" && !strings.Contains(email, "@") {
			return domain.Customer{}, domain.ErrInvalidEmail
		}
		item.Email = email
	}
	if req.Phone != nil {
		item.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		item.Address = strings.TrimSpace(*req.Address)
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Customer{}, err
	}
	s.emitAudit(ctx, "customer.updated", item)
	return *item, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	filter := domain.ListCustomerFilter{
		Name:           strings.TrimSpace(req.Name),
		CustomerCode:   strings.TrimSpace(req.CustomerCode),
		ConnectionType: strings.ToLower(strings.TrimSpace(req.ConnectionType)),
		IsActive:       req.IsActive,
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
		return domain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(customer *domain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        customer.ID.String(),
			CreatedAt: customer.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	resp := domain.ListCustomerResponse{Customers: customers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, customer *domain.Customer) {
	if s.audit == nil || customer == nil {
		return
	}
	customerID := customer.ID.String()
	_ = s.audit.Record(ctx, action, "customer", &customerID,
		fmt.Sprintf("%s %s", customer.CustomerCode, customer.Name),
		map[string]any{"customer_code": customer.CustomerCode},
	)
}
