package service

import (
	"context"
	"strings"
	"time"

	"github.com/arusnet/arus/internal/systemlog/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("systemlog.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordLogRequest) error {
	level := domain.LogLevel(strings.ToLower(strings.TrimSpace(string(req.Level))))
	if !level.Valid() {
		return domain.ErrInvalidLevel
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return domain.ErrInvalidSource
	}

	entry := domain.SystemLog{
		ID:           s.genID.Generate(),
		Level:        level,
		Source:       source,
		Message:      strings.TrimSpace(req.Message),
		ErrorDetails: req.ErrorDetails,
		CreatedAt:    time.Now().UTC(),
	}
	return s.repo.Insert(ctx, s.db, &entry)
}

func (s *Service) List(ctx context.Context, req domain.ListLogRequest) (domain.ListLogResponse, error) {
	filter := domain.ListLogFilter{
		Level:  strings.ToLower(strings.TrimSpace(req.Level)),
		Source: strings.TrimSpace(req.Source),
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
		return domain.ListLogResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(entry *domain.SystemLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        entry.ID.String(),
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	logs := make([]domain.SystemLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	resp := domain.ListLogResponse{Logs: logs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}
