package domain

import (
	"context"
	"errors"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
)

var (
	ErrInvalidInterface = errors.New("invalid_interface_name")
	ErrInvalidCounter   = errors.New("invalid_counter_value")
	ErrInvalidRange     = errors.New("invalid_time_range")
	ErrDeviceNotFound   = errors.New("device_not_found")
)

type IngestRequest struct {
	DeviceID      string `json:"device_id"`
	InterfaceName string `json:"interface_name"`
	BytesIn       int64  `json:"bytes_in"`
	BytesOut      int64  `json:"bytes_out"`
	PacketsIn     int64  `json:"packets_in"`
	PacketsOut    int64  `json:"packets_out"`
	ErrorsIn      int64  `json:"errors_in"`
	ErrorsOut     int64  `json:"errors_out"`
	// Timestamp defaults to the ingest time when the agent omits it.
	Timestamp *time.Time `json:"timestamp"`
}

type QueryTrafficRequest struct {
	DeviceID      string     `json:"-" uri:"id"`
	InterfaceName string     `form:"interface_name"`
	Since         *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Until         *time.Time `form:"until" time_format:"2006-01-02T15:04:05Z07:00"`
	PageSize      int32      `form:"page_size"`
	PageToken     string     `form:"page_token"`
}

type QueryTrafficResponse struct {
	Samples  []TrafficMonitor    `json:"samples"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	// Ingest appends one counter sample pushed by a polling agent.
	Ingest(ctx context.Context, req IngestRequest) (TrafficMonitor, error)
	// Query returns samples for one device, newest first.
	Query(ctx context.Context, req QueryTrafficRequest) (QueryTrafficResponse, error)
}
