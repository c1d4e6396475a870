package domain

import (
	"context"
	"errors"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
)

var (
	ErrInvalidUsername  = errors.New("invalid_username")
	ErrInvalidSessionID = errors.New("invalid_session_id")
	ErrInvalidMAC       = errors.New("invalid_mac_address")
	ErrInvalidCounter   = errors.New("invalid_counter_value")
	ErrInvalidID        = errors.New("invalid_session")
	ErrNotFound         = errors.New("session_not_found")
	ErrSessionOpen      = errors.New("session_already_open")
	ErrSessionClosed    = errors.New("session_closed")
	ErrCustomerNotFound = errors.New("customer_not_found")
	ErrDeviceNotFound   = errors.New("device_not_found")
)

type OpenPPPoERequest struct {
	Username   string `json:"username"`
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
	DeviceID   string `json:"device_id"`
	IPAddress  string `json:"ip_address"`
	MACAddress string `json:"mac_address"`
}

// RefreshSessionRequest carries a polling update. Nil counters leave the
// stored value alone.
type RefreshSessionRequest struct {
	ID        string `json:"-" uri:"id"`
	Uptime    *int64 `json:"uptime"`
	BytesIn   *int64 `json:"bytes_in"`
	BytesOut  *int64 `json:"bytes_out"`
	IPAddress string `json:"ip_address"`
}

// CloseSessionRequest carries the final counters from the accounting
// stop, when the NAS reports them.
type CloseSessionRequest struct {
	ID       string `json:"-" uri:"id"`
	Uptime   *int64 `json:"uptime"`
	BytesIn  *int64 `json:"bytes_in"`
	BytesOut *int64 `json:"bytes_out"`
}

type GetSessionRequest struct {
	ID string `uri:"id"`
}

type ListPPPoERequest struct {
	Username   string `form:"username"`
	SessionID  string `form:"session_id"`
	CustomerID string `form:"customer_id"`
	DeviceID   string `form:"device_id"`
	IsActive   *bool  `form:"is_active"`
	PageSize   int32  `form:"page_size"`
	PageToken  string `form:"page_token"`
}

type ListPPPoEResponse struct {
	Sessions []PPPoESession      `json:"sessions"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type OpenHotspotRequest struct {
	Username   string `json:"username"`
	MACAddress string `json:"mac_address"`
	CustomerID string `json:"customer_id"`
	IPAddress  string `json:"ip_address"`
}

type ListHotspotRequest struct {
	Username   string `form:"username"`
	MACAddress string `form:"mac_address"`
	CustomerID string `form:"customer_id"`
	IsActive   *bool  `form:"is_active"`
	PageSize   int32  `form:"page_size"`
	PageToken  string `form:"page_token"`
}

type ListHotspotResponse struct {
	Sessions []HotspotSession    `json:"sessions"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	// OpenPPPoE records a new subscriber connection. A second open with
	// the same NAS session id while the first is active is a conflict.
	OpenPPPoE(ctx context.Context, req OpenPPPoERequest) (PPPoESession, error)
	RefreshPPPoE(ctx context.Context, req RefreshSessionRequest) (PPPoESession, error)
	// ClosePPPoE ends the session. Closing a closed session is a no-op
	// returning the stored row.
	ClosePPPoE(ctx context.Context, req CloseSessionRequest) (PPPoESession, error)
	GetPPPoE(ctx context.Context, req GetSessionRequest) (PPPoESession, error)
	ListPPPoE(ctx context.Context, req ListPPPoERequest) (ListPPPoEResponse, error)

	// OpenHotspot records a captive-portal connection. One active session
	// per client MAC.
	OpenHotspot(ctx context.Context, req OpenHotspotRequest) (HotspotSession, error)
	RefreshHotspot(ctx context.Context, req RefreshSessionRequest) (HotspotSession, error)
	CloseHotspot(ctx context.Context, req CloseSessionRequest) (HotspotSession, error)
	GetHotspot(ctx context.Context, req GetSessionRequest) (HotspotSession, error)
	ListHotspot(ctx context.Context, req ListHotspotRequest) (ListHotspotResponse, error)

	// CloseStale sweeps sessions whose last_update fell behind the
	// configured cutoff and returns how many it closed. Driven by the
	// scheduler.
	CloseStale(ctx context.Context, now time.Time) (int64, error)
}
