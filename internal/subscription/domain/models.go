package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type CustomerSubscription struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID snowflake.ID `gorm:"not null;index" json:"customer_id"`
	PackageID  snowflake.ID `gorm:"not null;index" json:"package_id"`
	StartDate  time.Time    `gorm:"not null" json:"start_date"`
	EndDate    time.Time    `gorm:"not null" json:"end_date"`
	IsActive   bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CustomerSubscription) TableName() string { return "customer_subscriptions" }
