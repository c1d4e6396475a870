package domain

import (
	"context"
	"errors"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type CreateSubscriptionRequest struct {
	CustomerID string    `json:"customer_id"`
	PackageID  string    `json:"package_id"`
	StartDate  time.Time `json:"start_date"`
}

type GetSubscriptionRequest struct {
	ID string
}

type CancelSubscriptionRequest struct {
	ID string
}

type ListSubscriptionRequest struct {
	PageToken  string
	PageSize   int32
	CustomerID string
	PackageID  string
	IsActive   *bool
}

type ListSubscriptionFilter struct {
	CustomerID snowflake.ID
	PackageID  snowflake.ID
	IsActive   *bool
}

type ListSubscriptionResponse struct {
	pagination.PageInfo
	Subscriptions []CustomerSubscription `json:"subscriptions"`
}

type Service interface {
	Create(context.Context, CreateSubscriptionRequest) (CustomerSubscription, error)
	Cancel(context.Context, CancelSubscriptionRequest) (CustomerSubscription, error)
	GetByID(context.Context, GetSubscriptionRequest) (CustomerSubscription, error)
	List(context.Context, ListSubscriptionRequest) (ListSubscriptionResponse, error)
	ExpireDue(ctx context.Context, now time.Time, batchSize int) (int, error)
}

var (
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidPackage      = errors.New("invalid_package")
	ErrCustomerNotFound    = errors.New("customer_not_found")
	ErrCustomerInactive    = errors.New("customer_inactive")
	ErrPackageNotFound     = errors.New("package_not_found")
	ErrPackageInactive     = errors.New("package_inactive")
	ErrSubscriptionOverlap = errors.New("subscription_overlap")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
