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

type Customer struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	CustomerCode   string         `gorm:"size:20;not null;uniqueIndex" json:"customer_code"`
	Name           string         `gorm:"size:100;not null" json:"name"`
	Email          string         `gorm:"size:100" json:"email,omitempty"`
	Phone          string         `gorm:"size:20" json:"phone,omitempty"`
	Address        string         `gorm:"size:500" json:"address,omitempty"`
	ConnectionType ConnectionType `gorm:"size:20;not null" json:"connection_type"`
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedByID    snowflake.ID   `gorm:"index" json:"created_by_id"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
