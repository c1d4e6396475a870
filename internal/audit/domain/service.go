package domain

import (
	"context"
	"errors"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
)

var (
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidRange  = errors.New("invalid_time_range")
	ErrUserNotFound  = errors.New("user_not_found")
)

type ListActivityRequest struct {
	UserID       string     `form:"user_id"`
	Action       string     `form:"action"`
	ResourceType string     `form:"resource_type"`
	ResourceID   string     `form:"resource_id"`
	Since        *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Until        *time.Time `form:"until" time_format:"2006-01-02T15:04:05Z07:00"`
	PageSize     int32      `form:"page_size"`
	PageToken    string     `form:"page_token"`
}

type ListActivityResponse struct {
	Logs     []ActivityLog       `json:"activity_logs"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	// Record appends one entry. The acting user, client address and user
	// agent come off the request context; callers only name what
	// happened. Failures must not abort the operation being recorded.
	Record(ctx context.Context, action, resourceType string, resourceID *string, description string, metadata map[string]any) error
	// List returns entries newest first.
	List(ctx context.Context, req ListActivityRequest) (ListActivityResponse, error)
}
