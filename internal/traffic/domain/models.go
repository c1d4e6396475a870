// Package domain contains core types for the traffic sample service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TrafficMonitor is one counter reading off a device interface. Samples
// are append-only; polling agents push a new row every cycle.
type TrafficMonitor struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	DeviceID      snowflake.ID `json:"device_id" gorm:"not null;index"`
	InterfaceName string       `json:"interface_name" gorm:"size:50;not null"`
	BytesIn       int64        `json:"bytes_in" gorm:"not null;default:0"`
	BytesOut      int64        `json:"bytes_out" gorm:"not null;default:0"`
	PacketsIn     int64        `json:"packets_in" gorm:"not null;default:0"`
	PacketsOut    int64        `json:"packets_out" gorm:"not null;default:0"`
	ErrorsIn      int64        `json:"errors_in" gorm:"not null;default:0"`
	ErrorsOut     int64        `json:"errors_out" gorm:"not null;default:0"`
	Timestamp     time.Time    `json:"timestamp" gorm:"not null;index"`
}

func (TrafficMonitor) TableName() string {
	return "traffic_monitors"
}
