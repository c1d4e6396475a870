// Package domain contains core types for the subscriber session service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PPPoESession is one subscriber connection reported by a NAS. The row
// outlives the connection: close flips is_active and stamps end_time
// once, and end_time never precedes start_time. customer_id and
// device_id stay NULL when the accounting username is unknown or the
// device has since been removed.
type PPPoESession struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	Username   string        `json:"username" gorm:"size:100;not null;index"`
	CustomerID *snowflake.ID `json:"customer_id,omitempty" gorm:"index"`
	DeviceID   *snowflake.ID `json:"device_id,omitempty" gorm:"index"`
	SessionID  string        `json:"session_id" gorm:"size:100;not null;index"`
	IPAddress  string        `json:"ip_address,omitempty" gorm:"size:45"`
	MACAddress string        `json:"mac_address,omitempty" gorm:"size:17"`
	Uptime     int64         `json:"uptime" gorm:"not null;default:0"`
	BytesIn    int64         `json:"bytes_in" gorm:"not null;default:0"`
	BytesOut   int64         `json:"bytes_out" gorm:"not null;default:0"`
	IsActive   bool          `json:"is_active" gorm:"not null;default:true;index"`
	StartTime  time.Time     `json:"start_time" gorm:"not null"`
	EndTime    *time.Time    `json:"end_time,omitempty"`
	LastUpdate time.Time     `json:"last_update" gorm:"not null;index"`
}

func (PPPoESession) TableName() string {
	return "pppoe_sessions"
}

// HotspotSession is a captive-portal connection. There is no NAS session
// id; the client MAC identifies the open session.
type HotspotSession struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	Username   string        `json:"username" gorm:"size:100;not null;index"`
	CustomerID *snowflake.ID `json:"customer_id,omitempty" gorm:"index"`
	MACAddress string        `json:"mac_address" gorm:"size:17;not null;index"`
	IPAddress  string        `json:"ip_address,omitempty" gorm:"size:45"`
	Uptime     int64         `json:"uptime" gorm:"not null;default:0"`
	BytesIn    int64         `json:"bytes_in" gorm:"not null;default:0"`
	BytesOut   int64         `json:"bytes_out" gorm:"not null;default:0"`
	IsActive   bool          `json:"is_active" gorm:"not null;default:true;index"`
	StartTime  time.Time     `json:"start_time" gorm:"not null"`
	EndTime    *time.Time    `json:"end_time,omitempty"`
	LastUpdate time.Time     `json:"last_update" gorm:"not null;index"`
}

func (HotspotSession) TableName() string {
	return "hotspot_sessions"
}
