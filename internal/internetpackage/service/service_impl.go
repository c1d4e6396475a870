package service

import (
	"context"
	"strings"
	"time"

	"github.com/arusnet/arus/internal/internetpackage/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultValidityDays = 30

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
		log:   p.Log.Named("internetpackage.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePackageRequest) (domain.InternetPackage, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.InternetPackage{}, domain.ErrInvalidName
	}

	connectionType := domain.ConnectionType(strings.ToLower(strings.TrimSpace(req.ConnectionType)))
	if !connectionType.Valid() {
		return domain.InternetPackage{}, domain.ErrInvalidConnectionType
	}

	if req.BandwidthUp <= 0 || req.BandwidthDown <= 0 {
		return domain.InternetPackage{}, domain.ErrInvalidBandwidth
	}
	if req.Price < 0 {
		return domain.InternetPackage{}, domain.ErrInvalidPrice
	}

	validityDays := req.ValidityDays
	if validityDays == 0 {
		validityDays = defaultValidityDays
	}
	if validityDays < 1 {
		return domain.InternetPackage{}, domain.ErrInvalidValidity
	}

	now := time.Now().UTC()
	pkg := domain.InternetPackage{
		ID:             s.genID.Generate(),
		Name:           name,
		Description:    req.Description,
		ConnectionType: connectionType,
		BandwidthUp:    req.BandwidthUp,
		BandwidthDown:  req.BandwidthDown,
		Price:          req.Price,
		ValidityDays:   validityDays,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, &pkg); err != nil {
		return domain.InternetPackage{}, err
	}
	return pkg, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePackageRequest) (domain.InternetPackage, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.InternetPackage{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.InternetPackage{}, err
	}
	if item == nil {
		return domain.InternetPackage{}, domain.ErrNotFound
	}

	// Rate and validity edits would silently reprice subscribers mid-term,
	// so they are blocked while any active subscription references the
	// package. Deactivation and cosmetic edits stay allowed.
	if s.changesTerms(req, item) {
		count, err := s.repo.CountActiveSubscriptions(ctx, s.db, id)
		if err != nil {
			return domain.InternetPackage{}, err
		}
		if count > 0 {
			return domain.InternetPackage{}, domain.ErrPackageInUse
		}
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.InternetPackage{}, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.BandwidthUp != nil {
		if *req.BandwidthUp <= 0 {
			return domain.InternetPackage{}, domain.ErrInvalidBandwidth
		}
		item.BandwidthUp = *req.BandwidthUp
	}
	if req.BandwidthDown != nil {
		if *req.BandwidthDown <= 0 {
			return domain.InternetPackage{}, domain.ErrInvalidBandwidth
		}
		item.BandwidthDown = *req.BandwidthDown
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.InternetPackage{}, domain.ErrInvalidPrice
		}
		item.Price = *req.Price
	}
	if req.ValidityDays != nil {
		if *req.ValidityDays < 1 {
			return domain.InternetPackage{}, domain.ErrInvalidValidity
		}
		item.ValidityDays = *req.ValidityDays
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	item.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.InternetPackage{}, err
	}
	return *item, nil
}

func (s *Service) changesTerms(req domain.UpdatePackageRequest, current *domain.InternetPackage) bool {
	if req.BandwidthUp != nil && *req.BandwidthUp != current.BandwidthUp {
		return true
	}
	if req.BandwidthDown != nil && *req.BandwidthDown != current.BandwidthDown {
		return true
	}
	if req.Price != nil && *req.Price != current.Price {
		return true
	}
	if req.ValidityDays != nil && *req.ValidityDays != current.ValidityDays {
		return true
	}
	return false
}

func (s *Service) GetByID(ctx context.Context, req domain.GetPackageRequest) (domain.InternetPackage, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.InternetPackage{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.InternetPackage{}, err
	}
	if item == nil {
		return domain.InternetPackage{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPackageRequest) (domain.ListPackageResponse, error) {
	filter := domain.ListPackageFilter{
		Name:           strings.TrimSpace(req.Name),
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
		return domain.ListPackageResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(pkg *domain.InternetPackage) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        pkg.ID.String(),
			CreatedAt: pkg.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	packages := make([]domain.InternetPackage, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		packages = append(packages, *item)
	}

	resp := domain.ListPackageResponse{Packages: packages}
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
