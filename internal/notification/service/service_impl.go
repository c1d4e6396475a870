package service

import (
	"bytes"
	"context"
	"strings"
	"text/template"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/notification/domain"
	"github.com/arusnet/arus/pkg/db"
	"github.com/arusnet/arus/pkg/db/pagination"
)

const (
	defaultPriority = 5
	recipientMaxLen = 255
	subjectMaxLen   = 200
	messageMaxLen   = 2000
	errMsgMaxLen    = 500
	templateNameMax = 100
	templateBodyMax = 2000
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Dispatch *config.DispatchConfigHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	dispatch *config.DispatchConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("notification.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		dispatch: p.Dispatch,
	}
}

func (s *Service) Enqueue(ctx context.Context, req domain.EnqueueRequest) (domain.NotificationQueue, error) {
	notifType := domain.NotificationType(strings.ToLower(strings.TrimSpace(req.NotificationType)))
	if !notifType.Valid() {
		return domain.NotificationQueue{}, domain.ErrInvalidType
	}
	return s.enqueue(ctx, notifType, req.Recipient, req.Subject, req.Message, req.Priority, req.ScheduledAt)
}

func (s *Service) EnqueueFromTemplate(ctx context.Context, req domain.EnqueueFromTemplateRequest) (domain.NotificationQueue, error) {
	name := strings.TrimSpace(req.TemplateName)
	if name == "" {
		return domain.NotificationQueue{}, domain.ErrTemplateNotFound
	}

	tpl, err := s.repo.FindTemplateByName(ctx, s.db, name)
	if err != nil {
		return domain.NotificationQueue{}, err
	}
	if tpl == nil {
		return domain.NotificationQueue{}, domain.ErrTemplateNotFound
	}
	if !tpl.IsActive {
		return domain.NotificationQueue{}, domain.ErrTemplateInactive
	}

	message, err := render(tpl.Name, tpl.Template, req.Data)
	if err != nil {
		return domain.NotificationQueue{}, domain.ErrInvalidTemplate
	}
	subject := tpl.Subject
	if strings.Contains(subject, "{{") {
		subject, err = render(tpl.Name+".subject", tpl.Subject, req.Data)
		if err != nil {
			return domain.NotificationQueue{}, domain.ErrInvalidTemplate
		}
	}

	return s.enqueue(ctx, tpl.NotificationType, req.Recipient, subject, message, req.Priority, req.ScheduledAt)
}

func (s *Service) enqueue(ctx context.Context, notifType domain.NotificationType, recipient, subject, message string, priority int32, scheduledAt *time.Time) (domain.NotificationQueue, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || len(recipient) > recipientMaxLen {
		return domain.NotificationQueue{}, domain.ErrInvalidRecipient
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.NotificationQueue{}, domain.ErrInvalidMessage
	}
	message = truncate(message, messageMaxLen)
	subject = truncate(strings.TrimSpace(subject), subjectMaxLen)

	if priority <= 0 {
		priority = defaultPriority
	}

	now := time.Now().UTC()
	at := now
	if scheduledAt != nil {
		at = scheduledAt.UTC()
	}

	item := domain.NotificationQueue{
		ID:               s.genID.Generate(),
		NotificationType: notifType,
		Recipient:        recipient,
		Subject:          subject,
		Message:          message,
		Priority:         priority,
		Status:           domain.NotificationStatusPending,
		ScheduledAt:      at,
		CreatedAt:        now,
	}
	if err := s.repo.InsertNotification(ctx, s.db, &item); err != nil {
		return domain.NotificationQueue{}, err
	}

	s.log.Info("notification enqueued",
		zap.String("notification_id", item.ID.String()),
		zap.String("notification_type", string(notifType)),
		zap.Int32("priority", priority),
	)
	return item, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetNotificationRequest) (domain.NotificationQueue, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.NotificationQueue{}, err
	}

	item, err := s.repo.FindNotificationByID(ctx, s.db, id)
	if err != nil {
		return domain.NotificationQueue{}, err
	}
	if item == nil {
		return domain.NotificationQueue{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListNotificationRequest) (domain.ListNotificationResponse, error) {
	filter := domain.ListNotificationFilter{
		NotificationType: strings.ToLower(strings.TrimSpace(req.NotificationType)),
		Status:           strings.ToLower(strings.TrimSpace(req.Status)),
		Recipient:        strings.TrimSpace(req.Recipient),
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListNotifications(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListNotificationResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.NotificationQueue) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		items = items[:pageSize]
	}

	resp := domain.ListNotificationResponse{
		Notifications: make([]domain.NotificationQueue, 0, len(items)),
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Notifications = append(resp.Notifications, *item)
	}
	resp.PageInfo = *pageInfo
	return resp, nil
}

func (s *Service) DequeueReady(ctx context.Context, now time.Time, limit int) ([]domain.NotificationQueue, error) {
	if limit <= 0 {
		limit = s.dispatch.Get().DequeueBatchSize
	}

	var claimed []*domain.NotificationQueue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		claimed, err = s.repo.ClaimReady(ctx, tx, now, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.NotificationQueue, 0, len(claimed))
	for _, item := range claimed {
		if item == nil {
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

func (s *Service) RecordAttempt(ctx context.Context, id snowflake.ID, attemptErr error) error {
	if id == 0 {
		return domain.ErrInvalidID
	}

	now := time.Now().UTC()
	if attemptErr == nil {
		return s.repo.RecordSuccess(ctx, s.db, id, now)
	}

	ceiling := int32(s.dispatch.Get().RetryCeiling)
	s.log.Warn("notification attempt failed",
		zap.String("notification_id", id.String()),
		zap.Error(attemptErr),
	)
	return s.repo.RecordFailure(ctx, s.db, id, now, truncate(attemptErr.Error(), errMsgMaxLen), ceiling)
}

func (s *Service) CreateTemplate(ctx context.Context, req domain.CreateTemplateRequest) (domain.NotificationTemplate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > templateNameMax {
		return domain.NotificationTemplate{}, domain.ErrInvalidName
	}
	notifType := domain.NotificationType(strings.ToLower(strings.TrimSpace(req.NotificationType)))
	if !notifType.Valid() {
		return domain.NotificationTemplate{}, domain.ErrInvalidType
	}
	body := strings.TrimSpace(req.Template)
	if body == "" || len(body) > templateBodyMax {
		return domain.NotificationTemplate{}, domain.ErrInvalidTemplate
	}
	// Broken template syntax surfaces here, not at enqueue time.
	if _, err := template.New(name).Parse(body); err != nil {
		return domain.NotificationTemplate{}, domain.ErrInvalidTemplate
	}

	now := time.Now().UTC()
	tpl := domain.NotificationTemplate{
		ID:               s.genID.Generate(),
		Name:             name,
		NotificationType: notifType,
		Subject:          truncate(strings.TrimSpace(req.Subject), subjectMaxLen),
		Template:         body,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.InsertTemplate(ctx, s.db, &tpl); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.NotificationTemplate{}, domain.ErrTemplateTaken
		}
		return domain.NotificationTemplate{}, err
	}
	return tpl, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, req domain.UpdateTemplateRequest) (domain.NotificationTemplate, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.NotificationTemplate{}, err
	}

	tpl, err := s.repo.FindTemplateByID(ctx, s.db, id)
	if err != nil {
		return domain.NotificationTemplate{}, err
	}
	if tpl == nil {
		return domain.NotificationTemplate{}, domain.ErrTemplateNotFound
	}

	if req.Subject != nil {
		tpl.Subject = truncate(strings.TrimSpace(*req.Subject), subjectMaxLen)
	}
	if req.Template != nil {
		body := strings.TrimSpace(*req.Template)
		if body == "" || len(body) > templateBodyMax {
			return domain.NotificationTemplate{}, domain.ErrInvalidTemplate
		}
		if _, err := template.New(tpl.Name).Parse(body); err != nil {
			return domain.NotificationTemplate{}, domain.ErrInvalidTemplate
		}
		tpl.Template = body
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	tpl.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateTemplate(ctx, s.db, tpl); err != nil {
		return domain.NotificationTemplate{}, err
	}
	return *tpl, nil
}

func (s *Service) GetTemplate(ctx context.Context, req domain.GetTemplateRequest) (domain.NotificationTemplate, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.NotificationTemplate{}, err
	}

	tpl, err := s.repo.FindTemplateByID(ctx, s.db, id)
	if err != nil {
		return domain.NotificationTemplate{}, err
	}
	if tpl == nil {
		return domain.NotificationTemplate{}, domain.ErrTemplateNotFound
	}
	return *tpl, nil
}

func (s *Service) ListTemplates(ctx context.Context, req domain.ListTemplateRequest) (domain.ListTemplateResponse, error) {
	filter := domain.ListTemplateFilter{
		NotificationType: strings.ToLower(strings.TrimSpace(req.NotificationType)),
		IsActive:         req.IsActive,
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListTemplates(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListTemplateResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(tpl *domain.NotificationTemplate) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        tpl.ID.String(),
			CreatedAt: tpl.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		items = items[:pageSize]
	}

	resp := domain.ListTemplateResponse{
		Templates: make([]domain.NotificationTemplate, 0, len(items)),
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Templates = append(resp.Templates, *item)
	}
	resp.PageInfo = *pageInfo
	return resp, nil
}

func (s *Service) parseID(v string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(v))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func render(name, body string, data map[string]any) (string, error) {
	tpl, err := template.New(name).Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func truncate(v string, max int) string {
	if len(v) <= max {
		return v
	}
	runes := []rune(v)
	if len(runes) <= max {
		return v
	}
	return string(runes[:max])
}
