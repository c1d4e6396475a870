package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/traffic/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
)

const interfaceMaxLen = 50

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
		log:   p.Log.Named("traffic.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Ingest(ctx context.Context, req domain.IngestRequest) (domain.TrafficMonitor, error) {
	ifName := strings.TrimSpace(req.InterfaceName)
	if ifName == "" || len(ifName) > interfaceMaxLen {
		return domain.TrafficMonitor{}, domain.ErrInvalidInterface
	}

	// Counters come off SNMP and RouterOS as unsigned values.
	if req.BytesIn < 0 || req.BytesOut < 0 ||
		req.PacketsIn < 0 || req.PacketsOut < 0 ||
		req.ErrorsIn < 0 || req.ErrorsOut < 0 {
		return domain.TrafficMonitor{}, domain.ErrInvalidCounter
	}

	deviceID, err := snowflake.ParseString(strings.TrimSpace(req.DeviceID))
	if err != nil || deviceID == 0 {
		return domain.TrafficMonitor{}, domain.ErrDeviceNotFound
	}

	timestamp := time.Now().UTC()
	if req.Timestamp != nil {
		timestamp = req.Timestamp.UTC()
	}

	sample := domain.TrafficMonitor{
		ID:            s.genID.Generate(),
		DeviceID:      deviceID,
		InterfaceName: ifName,
		BytesIn:       req.BytesIn,
		BytesOut:      req.BytesOut,
		PacketsIn:     req.PacketsIn,
		PacketsOut:    req.PacketsOut,
		ErrorsIn:      req.ErrorsIn,
		ErrorsOut:     req.ErrorsOut,
		Timestamp:     timestamp,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM network_devices WHERE id = ?`, deviceID,
		).Scan(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrDeviceNotFound
		}
		return s.repo.Insert(ctx, tx, &sample)
	})
	if err != nil {
		return domain.TrafficMonitor{}, err
	}
	return sample, nil
}

func (s *Service) Query(ctx context.Context, req domain.QueryTrafficRequest) (domain.QueryTrafficResponse, error) {
	deviceID, err := snowflake.ParseString(strings.TrimSpace(req.DeviceID))
	if err != nil || deviceID == 0 {
		return domain.QueryTrafficResponse{}, domain.ErrDeviceNotFound
	}

	if req.Since != nil && req.Until != nil && req.Until.Before(*req.Since) {
		return domain.QueryTrafficResponse{}, domain.ErrInvalidRange
	}

	filter := domain.ListTrafficFilter{
		DeviceID:      deviceID,
		InterfaceName: strings.TrimSpace(req.InterfaceName),
		Since:         req.Since,
		Until:         req.Until,
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	samples, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.QueryTrafficResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(samples, pageSize, func(sample *domain.TrafficMonitor) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        sample.ID.String(),
			CreatedAt: sample.Timestamp.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		samples = samples[:pageSize]
	}

	resp := domain.QueryTrafficResponse{
		Samples: make([]domain.TrafficMonitor, 0, len(samples)),
	}
	for _, sample := range samples {
		if sample == nil {
			continue
		}
		resp.Samples = append(resp.Samples, *sample)
	}
	resp.PageInfo = *pageInfo
	return resp, nil
}
