package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ConnectionType string

const (
	ConnectionTypePPPoE   ConnectionType = "pppoe"
	ConnectionTypeHotspot ConnectionType = "hotspot"
)

func (t ConnectionType) Valid() bool {
	switch t {
	case ConnectionTypePPPoE, ConnectionTypeHotspot:
		return true
	default:
		return false
	}
}

type InternetPackage struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"size:100;not null" json:"name"`
	Description    *string        `gorm:"size:500" json:"description,omitempty"`
	ConnectionType ConnectionType `gorm:"size:20;not null" json:"connection_type"`
	BandwidthUp    int            `gorm:"not null" json:"bandwidth_up"`
	BandwidthDown  int            `gorm:"not null" json:"bandwidth_down"`
	Price          int64          `gorm:"not null" json:"price"`
	ValidityDays   int            `gorm:"not null;default:30" json:"validity_days"`
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (InternetPackage) TableName() string { return "internet_packages" }
