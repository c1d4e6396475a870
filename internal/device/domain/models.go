// Package domain contains core types for the network topology service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type DeviceType string

const (
	DeviceTypeOLT      DeviceType = "olt"
	DeviceTypeODC      DeviceType = "odc"
	DeviceTypeODP      DeviceType = "odp"
	DeviceTypeONU      DeviceType = "onu"
	DeviceTypeMikrotik DeviceType = "mikrotik"
)

func (t DeviceType) Valid() bool {
	switch t {
	case DeviceTypeOLT, DeviceTypeODC, DeviceTypeODP, DeviceTypeONU, DeviceTypeMikrotik:
		return true
	}
	return false
}

type DeviceStatus string

const (
	DeviceStatusActive      DeviceStatus = "active"
	DeviceStatusDown        DeviceStatus = "down"
	DeviceStatusError       DeviceStatus = "error"
	DeviceStatusMaintenance DeviceStatus = "maintenance"
)

func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceStatusActive, DeviceStatusDown, DeviceStatusError, DeviceStatusMaintenance:
		return true
	}
	return false
}

// NetworkDevice is a node in the management tree. parent_device_id links
// child to parent (OLT -> ODC -> ODP -> ONU); the graph must stay acyclic.
type NetworkDevice struct {
	ID              snowflake.ID  `json:"id" gorm:"primaryKey"`
	Name            string        `json:"name" gorm:"size:100;not null"`
	DeviceType      DeviceType    `json:"device_type" gorm:"size:20;not null;index"`
	IPAddress       string        `json:"ip_address,omitempty" gorm:"size:45"`
	MACAddress      string        `json:"mac_address,omitempty" gorm:"size:17"`
	Location        string        `json:"location,omitempty" gorm:"size:200"`
	Latitude        *float64      `json:"latitude,omitempty"`
	Longitude       *float64      `json:"longitude,omitempty"`
	Status          DeviceStatus  `json:"status" gorm:"size:20;not null;index"`
	ParentDeviceID  *snowflake.ID `json:"parent_device_id,omitempty" gorm:"index"`
	SNMPCommunity   string        `json:"snmp_community,omitempty" gorm:"size:50"`
	SNMPPort        int32         `json:"snmp_port" gorm:"not null;default:161"`
	APIUsername     string        `json:"api_username,omitempty" gorm:"size:50"`
	APIPassword     string        `json:"-" gorm:"size:100"`
	APIPort         *int32        `json:"api_port,omitempty"`
	FirmwareVersion string        `json:"firmware_version,omitempty" gorm:"size:50"`
	Model           string        `json:"model,omitempty" gorm:"size:100"`
	SerialNumber    string        `json:"serial_number,omitempty" gorm:"size:100"`
	LastSeen        *time.Time    `json:"last_seen,omitempty"`
	CreatedAt       time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time     `json:"updated_at" gorm:"not null"`
}

func (NetworkDevice) TableName() string { return "network_devices" }

// DeviceConnection is a directed physical or logical link between two
// devices, independent of the parent tree.
type DeviceConnection struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	FromDeviceID   snowflake.ID `json:"from_device_id" gorm:"not null;index"`
	ToDeviceID     snowflake.ID `json:"to_device_id" gorm:"not null;index"`
	ConnectionType string       `json:"connection_type" gorm:"size:50;not null"`
	PortFrom       string       `json:"port_from,omitempty" gorm:"size:20"`
	PortTo         string       `json:"port_to,omitempty" gorm:"size:20"`
	IsActive       bool         `json:"is_active" gorm:"not null;default:true"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null"`
}

func (DeviceConnection) TableName() string { return "device_connections" }
