// Package domain contains core types for the notification service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type NotificationType string

const (
	NotificationTypeTelegram NotificationType = "telegram"
	NotificationTypeWhatsApp NotificationType = "whatsapp"
	NotificationTypeEmail    NotificationType = "email"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeTelegram, NotificationTypeWhatsApp, NotificationTypeEmail:
		return true
	}
	return false
}

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// NotificationTemplate is a named text/template body rendered by
// EnqueueFromTemplate. Callers reference templates by name.
type NotificationTemplate struct {
	ID               snowflake.ID     `json:"id" gorm:"primaryKey"`
	Name             string           `json:"name" gorm:"size:100;not null;uniqueIndex"`
	NotificationType NotificationType `json:"notification_type" gorm:"size:20;not null"`
	Subject          string           `json:"subject,omitempty" gorm:"size:200"`
	Template         string           `json:"template" gorm:"size:2000;not null"`
	IsActive         bool             `json:"is_active" gorm:"not null;default:true"`
	CreatedAt        time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time        `json:"updated_at" gorm:"not null"`
}

func (NotificationTemplate) TableName() string { return "notification_templates" }

// NotificationQueue is a dispatch work item. Lower priority dispatches
// first.
type NotificationQueue struct {
	ID               snowflake.ID       `json:"id" gorm:"primaryKey"`
	NotificationType NotificationType   `json:"notification_type" gorm:"size:20;not null"`
	Recipient        string             `json:"recipient" gorm:"size:255;not null"`
	Subject          string             `json:"subject,omitempty" gorm:"size:200"`
	Message          string             `json:"message" gorm:"size:2000;not null"`
	Priority         int32              `json:"priority" gorm:"not null;default:5;index"`
	Status           NotificationStatus `json:"status" gorm:"size:20;not null;default:pending;index"`
	Attempts         int32              `json:"attempts" gorm:"not null;default:0"`
	LastAttempt      *time.Time         `json:"last_attempt,omitempty"`
	ScheduledAt      time.Time          `json:"scheduled_at" gorm:"not null;index"`
	SentAt           *time.Time         `json:"sent_at,omitempty"`
	ErrorMessage     string             `json:"error_message,omitempty" gorm:"size:500"`
	CreatedAt        time.Time          `json:"created_at" gorm:"not null"`
}

func (NotificationQueue) TableName() string { return "notification_queue" }
