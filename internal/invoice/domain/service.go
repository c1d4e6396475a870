package domain

import (
	"context"
	"errors"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type IssueInvoiceRequest struct {
	SubscriptionID  string  `json:"subscription_id"`
	DueDays         int     `json:"due_days"`
	Amount          int64   `json:"amount"`
	XenditInvoiceID *string `json:"xendit_invoice_id"`
}

type AttachGatewayInvoiceRequest struct {
	ID              string         `json:"-"`
	XenditInvoiceID string         `json:"xendit_invoice_id"`
	XenditData      map[string]any `json:"xendit_data"`
}

type GetInvoiceRequest struct {
	ID string
}

type ListInvoiceRequest struct {
	PageToken      string
	PageSize       int32
	Status         string
	SubscriptionID string
}

type ListInvoiceFilter struct {
	Status         string
	SubscriptionID snowflake.ID
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	Issue(context.Context, IssueInvoiceRequest) (Invoice, error)
	AttachGatewayInvoice(context.Context, AttachGatewayInvoiceRequest) (Invoice, error)
	GetByID(context.Context, GetInvoiceRequest) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	ExpireOverdue(ctx context.Context, now time.Time, batchSize int) (int, error)
}

var (
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidID            = errors.New("invalid_id")
	ErrNotFound             = errors.New("not_found")
	ErrGatewayIDTaken       = errors.New("gateway_invoice_taken")
)
