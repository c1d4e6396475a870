package domain

import (
	"context"
	"errors"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidType      = errors.New("invalid_notification_type")
	ErrInvalidRecipient = errors.New("invalid_recipient")
	ErrInvalidMessage   = errors.New("invalid_message")
	ErrInvalidID        = errors.New("invalid_notification_id")
	ErrNotFound         = errors.New("notification_not_found")
	ErrInvalidName      = errors.New("invalid_template_name")
	ErrInvalidTemplate  = errors.New("invalid_template")
	ErrTemplateTaken    = errors.New("template_name_taken")
	ErrTemplateNotFound = errors.New("template_not_found")
	ErrTemplateInactive = errors.New("template_inactive")
)

type EnqueueRequest struct {
	NotificationType string     `json:"notification_type"`
	Recipient        string     `json:"recipient"`
	Subject          string     `json:"subject"`
	Message          string     `json:"message"`
	Priority         int32      `json:"priority"`
	ScheduledAt      *time.Time `json:"scheduled_at"`
}

type EnqueueFromTemplateRequest struct {
	TemplateName string         `json:"template_name"`
	Recipient    string         `json:"recipient"`
	Priority     int32          `json:"priority"`
	ScheduledAt  *time.Time     `json:"scheduled_at"`
	Data         map[string]any `json:"data"`
}

type GetNotificationRequest struct {
	ID string `uri:"id"`
}

type ListNotificationRequest struct {
	NotificationType string `form:"notification_type"`
	Status           string `form:"status"`
	Recipient        string `form:"recipient"`
	PageToken        string `form:"page_token"`
	PageSize         int32  `form:"page_size"`
}

type ListNotificationResponse struct {
	pagination.PageInfo
	Notifications []NotificationQueue `json:"notifications"`
}

type CreateTemplateRequest struct {
	Name             string `json:"name"`
	NotificationType string `json:"notification_type"`
	Subject          string `json:"subject"`
	Template         string `json:"template"`
}

type UpdateTemplateRequest struct {
	ID       string  `json:"-"`
	Subject  *string `json:"subject"`
	Template *string `json:"template"`
	IsActive *bool   `json:"is_active"`
}

type GetTemplateRequest struct {
	ID string `uri:"id"`
}

type ListTemplateRequest struct {
	NotificationType string `form:"notification_type"`
	IsActive         *bool  `form:"is_active"`
	PageToken        string `form:"page_token"`
	PageSize         int32  `form:"page_size"`
}

type ListTemplateResponse struct {
	pagination.PageInfo
	Templates []NotificationTemplate `json:"templates"`
}

type Service interface {
	Enqueue(ctx context.Context, req EnqueueRequest) (NotificationQueue, error)
	EnqueueFromTemplate(ctx context.Context, req EnqueueFromTemplateRequest) (NotificationQueue, error)
	GetByID(ctx context.Context, req GetNotificationRequest) (NotificationQueue, error)
	List(ctx context.Context, req ListNotificationRequest) (ListNotificationResponse, error)

	// DequeueReady claims due pending work for the dispatcher.
	DequeueReady(ctx context.Context, now time.Time, limit int) ([]NotificationQueue, error)
	// RecordAttempt books the outcome of one delivery try. A nil
	// attemptErr marks the row sent; a failure keeps it pending until
	// attempts exceed the configured retry ceiling.
	RecordAttempt(ctx context.Context, id snowflake.ID, attemptErr error) error

	CreateTemplate(ctx context.Context, req CreateTemplateRequest) (NotificationTemplate, error)
	UpdateTemplate(ctx context.Context, req UpdateTemplateRequest) (NotificationTemplate, error)
	GetTemplate(ctx context.Context, req GetTemplateRequest) (NotificationTemplate, error)
	ListTemplates(ctx context.Context, req ListTemplateRequest) (ListTemplateResponse, error)
}
