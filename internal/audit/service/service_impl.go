package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/audit/domain"
	"github.com/arusnet/arus/internal/authctx"
	"github.com/arusnet/arus/internal/requestmeta"
	"github.com/arusnet/arus/pkg/db/pagination"
)

const (
	descriptionMaxLen = 500
	userAgentMaxLen   = 500
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
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, action, resourceType string, resourceID *string, description string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return domain.ErrInvalidAction
	}
	resourceType = strings.TrimSpace(resourceType)
	if resourceType == "" {
		resourceType = "unknown"
	}

	description = strings.TrimSpace(description)
	if runes := []rune(description); len(runes) > descriptionMaxLen {
		description = string(runes[:descriptionMaxLen])
	}

	payload := map[string]any{}
	for key, value := range metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := requestmeta.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	userAgent := requestmeta.UserAgentFromContext(ctx)
	if len(userAgent) > userAgentMaxLen {
		userAgent = userAgent[:userAgentMaxLen]
	}

	entry := domain.ActivityLog{
		ID:           s.genID.Generate(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   normalizePointer(resourceID),
		Description:  description,
		IPAddress:    requestmeta.IPAddressFromContext(ctx),
		UserAgent:    userAgent,
		CreatedAt:    time.Now().UTC(),
	}
	if actor, ok := authctx.ActorFromContext(ctx); ok && actor.UserID != 0 {
		userID := actor.UserID
		entry.UserID = &userID
		if actor.Username != "" {
			payload["username"] = actor.Username
		}
	}
	if len(payload) > 0 {
		entry.AdditionalData = datatypes.JSONMap(payload)
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write activity log",
			zap.String("action", action),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListActivityRequest) (domain.ListActivityResponse, error) {
	if req.Since != nil && req.Until != nil && req.Until.Before(*req.Since) {
		return domain.ListActivityResponse{}, domain.ErrInvalidRange
	}

	filter := domain.ListActivityFilter{
		Action:       strings.TrimSpace(req.Action),
		ResourceType: strings.TrimSpace(req.ResourceType),
		ResourceID:   strings.TrimSpace(req.ResourceID),
		Since:        req.Since,
		Until:        req.Until,
	}
	if v := strings.TrimSpace(req.UserID); v != "" {
		userID, err := snowflake.ParseString(v)
		if err != nil {
			return domain.ListActivityResponse{}, domain.ErrUserNotFound
		}
		filter.UserID = userID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	logs, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListActivityResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(logs, pageSize, func(entry *domain.ActivityLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        entry.ID.String(),
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		logs = logs[:pageSize]
	}

	resp := domain.ListActivityResponse{Logs: make([]domain.ActivityLog, 0, len(logs))}
	for _, entry := range logs {
		if entry == nil {
			continue
		}
		resp.Logs = append(resp.Logs, *entry)
	}
	resp.PageInfo = *pageInfo
	return resp, nil
}

func normalizePointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
