package domain

import (
	"context"
	"errors"

	"github.com/arusnet/arus/pkg/db/pagination"
)

var (
	ErrInvalidLevel  = errors.New("invalid_log_level")
	ErrInvalidSource = errors.New("invalid_log_source")
)

type RecordLogRequest struct {
	Level        LogLevel `json:"level"`
	Source       string   `json:"source"`
	Message      string   `json:"message"`
	ErrorDetails *string  `json:"error_details,omitempty"`
}

type ListLogRequest struct {
	Level     string `form:"level"`
	Source    string `form:"source"`
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
}

type ListLogResponse struct {
	pagination.PageInfo
	Logs []SystemLog `json:"system_logs"`
}

type Service interface {
	Record(ctx context.Context, req RecordLogRequest) error
	List(ctx context.Context, req ListLogRequest) (ListLogResponse, error)
}
