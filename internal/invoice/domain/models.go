// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus represents lifecycle states for an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusExpired InvoiceStatus = "expired"
	InvoiceStatusFailed  InvoiceStatus = "failed"
)

// CanTransition reports whether an invoice may move from one status to
// another. Pending fans out to the three terminal states; nothing leaves
// a terminal state. Retrying a settled or lapsed invoice means issuing a
// new one, never rewinding the old row.
func CanTransition(from, to InvoiceStatus) bool {
	if from != InvoiceStatusPending {
		return false
	}
	switch to {
	case InvoiceStatusPaid, InvoiceStatusExpired, InvoiceStatusFailed:
		return true
	default:
		return false
	}
}

type Invoice struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	InvoiceNumber   string            `gorm:"size:50;not null;uniqueIndex" json:"invoice_number"`
	SubscriptionID  snowflake.ID      `gorm:"not null;index" json:"subscription_id"`
	XenditInvoiceID *string           `gorm:"size:100;uniqueIndex" json:"xendit_invoice_id,omitempty"`
	Amount          int64             `gorm:"not null" json:"amount"`
	Status          InvoiceStatus     `gorm:"size:20;not null;default:pending" json:"status"`
	DueDate         time.Time         `gorm:"not null" json:"due_date"`
	IssuedDate      time.Time         `gorm:"not null" json:"issued_date"`
	PaidDate        *time.Time        `json:"paid_date,omitempty"`
	XenditData      datatypes.JSONMap `gorm:"type:jsonb" json:"xendit_data,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceSequence hands out per-month numbers for invoice_number
// generation. month_key is YYYYMM.
type InvoiceSequence struct {
	MonthKey   string `gorm:"primaryKey;size:6" json:"month_key"`
	LastNumber int64  `gorm:"not null" json:"last_number"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }
