package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusExpired PaymentStatus = "expired"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodQRIS           PaymentMethod = "qris"
	PaymentMethodVirtualAccount PaymentMethod = "virtual_account"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
)

// NormalizePaymentMethod maps gateway channel names onto the methods the
// platform tracks. Anything unrecognized is recorded as a bank transfer.
func NormalizePaymentMethod(value string) PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "qris", "qr_code":
		return PaymentMethodQRIS
	case "virtual_account", "va":
		return PaymentMethodVirtualAccount
	default:
		return PaymentMethodBankTransfer
	}
}

// Payment mirrors one gateway event against an invoice. Several rows may
// reference the same invoice; the invoice's own status is only ever moved
// by the reconciliation service.
type Payment struct {
	ID                snowflake.ID      `json:"id" gorm:"primaryKey"`
	PaymentID         string            `json:"payment_id" gorm:"size:100;uniqueIndex;not null"`
	CustomerID        snowflake.ID      `json:"customer_id" gorm:"not null;index"`
	InvoiceID         snowflake.ID      `json:"invoice_id" gorm:"not null;index"`
	XenditPaymentID   string            `json:"xendit_payment_id" gorm:"size:100;uniqueIndex;not null"`
	Amount            int64             `json:"amount" gorm:"not null"`
	PaymentMethod     PaymentMethod     `json:"payment_method" gorm:"size:30;not null"`
	Status            PaymentStatus     `json:"status" gorm:"size:20;not null"`
	PaymentDate       *time.Time        `json:"payment_date,omitempty"`
	XenditWebhookData datatypes.JSONMap `json:"xendit_webhook_data,omitempty" gorm:"type:jsonb"`
	CreatedAt         time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// WebhookLog records every inbound gateway delivery before any parsing or
// verification happens, so a failed delivery is never lost.
type WebhookLog struct {
	ID               snowflake.ID      `json:"id" gorm:"primaryKey"`
	Source           string            `json:"source" gorm:"size:50;not null;index"`
	EventType        string            `json:"event_type" gorm:"size:100"`
	Payload          datatypes.JSON    `json:"payload" gorm:"type:jsonb"`
	Headers          datatypes.JSONMap `json:"headers,omitempty" gorm:"type:jsonb"`
	Processed        bool              `json:"processed" gorm:"not null;default:false"`
	ProcessingResult string            `json:"processing_result" gorm:"size:500"`
	ProcessedAt      *time.Time        `json:"processed_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at" gorm:"not null;index"`
}

func (WebhookLog) TableName() string { return "webhook_logs" }

// PaymentEvent is the canonical gateway event produced by adapters.
type PaymentEvent struct {
	Provider        string
	XenditInvoiceID string
	XenditPaymentID string
	ExternalID      string
	Status          string
	PaymentMethod   string
	Amount          int64
	PaidAt          time.Time
	RawPayload      []byte
}

// Gateway statuses adapters are allowed to forward.
const (
	GatewayStatusPaid    = "PAID"
	GatewayStatusSettled = "SETTLED"
	GatewayStatusExpired = "EXPIRED"
	GatewayStatusFailed  = "FAILED"
)
