package domain

import (
	"context"
	"errors"

	"github.com/arusnet/arus/pkg/db/pagination"
)

var (
	ErrInvalidName       = errors.New("invalid_device_name")
	ErrInvalidType       = errors.New("invalid_device_type")
	ErrInvalidStatus     = errors.New("invalid_device_status")
	ErrInvalidID         = errors.New("invalid_device_id")
	ErrNotFound          = errors.New("device_not_found")
	ErrParentNotFound    = errors.New("parent_device_not_found")
	ErrCycle             = errors.New("topology_cycle")
	ErrHasChildren       = errors.New("device_has_children")
	ErrInvalidConnection = errors.New("invalid_connection")
	ErrConnNotFound      = errors.New("connection_not_found")
)

type CreateDeviceRequest struct {
	Name            string   `json:"name"`
	DeviceType      string   `json:"device_type"`
	IPAddress       string   `json:"ip_address"`
	MACAddress      string   `json:"mac_address"`
	Location        string   `json:"location"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	ParentID        string   `json:"parent_device_id"`
	SNMPCommunity   string   `json:"snmp_community"`
	SNMPPort        int32    `json:"snmp_port"`
	APIUsername     string   `json:"api_username"`
	APIPassword     string   `json:"api_password"`
	APIPort         *int32   `json:"api_port"`
	FirmwareVersion string   `json:"firmware_version"`
	Model           string   `json:"model"`
	SerialNumber    string   `json:"serial_number"`
}

// UpdateDeviceRequest patches a device. ParentID moves the device in the
// tree; an explicit empty string detaches it to a root.
type UpdateDeviceRequest struct {
	ID              string   `json:"-"`
	Name            *string  `json:"name"`
	IPAddress       *string  `json:"ip_address"`
	MACAddress      *string  `json:"mac_address"`
	Location        *string  `json:"location"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	Status          *string  `json:"status"`
	ParentID        *string  `json:"parent_device_id"`
	SNMPCommunity   *string  `json:"snmp_community"`
	SNMPPort        *int32   `json:"snmp_port"`
	APIUsername     *string  `json:"api_username"`
	APIPassword     *string  `json:"api_password"`
	APIPort         *int32   `json:"api_port"`
	FirmwareVersion *string  `json:"firmware_version"`
	Model           *string  `json:"model"`
	SerialNumber    *string  `json:"serial_number"`
}

type GetDeviceRequest struct {
	ID string `uri:"id"`
}

type DeleteDeviceRequest struct {
	ID string `uri:"id"`
}

type ListDeviceRequest struct {
	DeviceType string `form:"device_type"`
	Status     string `form:"status"`
	ParentID   string `form:"parent_device_id"`
	Name       string `form:"name"`
	PageToken  string `form:"page_token"`
	PageSize   int32  `form:"page_size"`
}

type ListDeviceResponse struct {
	pagination.PageInfo
	Devices []NetworkDevice `json:"devices"`
}

type TopologyRequest struct {
	RootID string `uri:"id"`
}

type TopologyNode struct {
	Device   NetworkDevice   `json:"device"`
	Children []*TopologyNode `json:"children"`
}

type TopologyResponse struct {
	Root        *TopologyNode      `json:"root"`
	Connections []DeviceConnection `json:"connections"`
	DeviceCount int                `json:"device_count"`
}

type HeartbeatRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
}

type AddConnectionRequest struct {
	FromDeviceID   string `json:"from_device_id"`
	ToDeviceID     string `json:"to_device_id"`
	ConnectionType string `json:"connection_type"`
	PortFrom       string `json:"port_from"`
	PortTo         string `json:"port_to"`
}

type DeleteConnectionRequest struct {
	ID string `uri:"id"`
}

type ListConnectionRequest struct {
	DeviceID  string `form:"device_id"`
	IsActive  *bool  `form:"is_active"`
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
}

type ListConnectionResponse struct {
	pagination.PageInfo
	Connections []DeviceConnection `json:"connections"`
}

type Service interface {
	Create(ctx context.Context, req CreateDeviceRequest) (NetworkDevice, error)
	Update(ctx context.Context, req UpdateDeviceRequest) (NetworkDevice, error)
	GetByID(ctx context.Context, req GetDeviceRequest) (NetworkDevice, error)
	List(ctx context.Context, req ListDeviceRequest) (ListDeviceResponse, error)
	// Delete removes a device with no children together with its edges
	// and telemetry. Open sessions keep running with the device cleared.
	Delete(ctx context.Context, req DeleteDeviceRequest) error
	Topology(ctx context.Context, req TopologyRequest) (TopologyResponse, error)
	Heartbeat(ctx context.Context, req HeartbeatRequest) (NetworkDevice, error)

	AddConnection(ctx context.Context, req AddConnectionRequest) (DeviceConnection, error)
	RemoveConnection(ctx context.Context, req DeleteConnectionRequest) error
	ListConnections(ctx context.Context, req ListConnectionRequest) (ListConnectionResponse, error)
}
