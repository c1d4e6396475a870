// Package domain contains core types for the device alarm service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type AlarmSeverity string

const (
	SeverityCritical AlarmSeverity = "critical"
	SeverityMajor    AlarmSeverity = "major"
	SeverityMinor    AlarmSeverity = "minor"
	SeverityWarning  AlarmSeverity = "warning"
	SeverityInfo     AlarmSeverity = "info"
)

func (s AlarmSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityMinor, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// DeviceAlarm records a fault raised against a device. Alarms are never
// deleted; acknowledge marks an operator has seen one and resolve closes it.
type DeviceAlarm struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	DeviceID       snowflake.ID  `json:"device_id" gorm:"not null;index"`
	AlarmType      string        `json:"alarm_type" gorm:"size:50;not null"`
	Severity       AlarmSeverity `json:"severity" gorm:"size:20;not null;index"`
	Message        string        `json:"message" gorm:"size:500;not null"`
	IsAcknowledged bool          `json:"is_acknowledged" gorm:"not null;default:false"`
	AcknowledgedBy string        `json:"acknowledged_by,omitempty" gorm:"size:100"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	Resolved       bool          `json:"resolved" gorm:"not null;default:false;index"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"not null"`
}

func (DeviceAlarm) TableName() string {
	return "device_alarms"
}
