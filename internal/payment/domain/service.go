package domain

import (
	"context"
	"errors"
	"net/http"

	"github.com/arusnet/arus/pkg/db/pagination"
)

var (
	ErrInvalidEvent          = errors.New("invalid_payment_event")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrInvalidConfig         = errors.New("invalid_provider_config")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrInvoiceNotFound       = errors.New("invoice_not_found")
	ErrInvalidState          = errors.New("invalid_invoice_state")
	ErrInvalidID             = errors.New("invalid_payment_id")
	ErrNotFound              = errors.New("payment_not_found")
)

type GetPaymentRequest struct {
	ID string `uri:"id"`
}

type ListPaymentRequest struct {
	Status     string `form:"status"`
	Method     string `form:"payment_method"`
	CustomerID string `form:"customer_id"`
	InvoiceID  string `form:"invoice_id"`
	PageToken  string `form:"page_token"`
	PageSize   int32  `form:"page_size"`
}

type ListPaymentResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

// Service reconciles gateway events against invoices and answers payment
// queries.
type Service interface {
	ApplyPaymentWebhook(ctx context.Context, event *PaymentEvent) error
	GetByID(ctx context.Context, req GetPaymentRequest) (Payment, error)
	List(ctx context.Context, req ListPaymentRequest) (ListPaymentResponse, error)
}

// WebhookService takes raw inbound deliveries, records them, and routes
// them through the adapter registry into the reconciliation service.
type WebhookService interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

type AdapterConfig struct {
	Provider string
	Config   map[string]any
}

// PaymentAdapter parses one gateway's deliveries into canonical events.
// Verify rejects deliveries that fail the gateway's authenticity check.
type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}
