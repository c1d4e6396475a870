package domain

import (
	"context"
	"errors"

	"github.com/arusnet/arus/pkg/db/pagination"
)

type CreateCustomerRequest struct {
	CustomerCode   string `json:"customer_code"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	ConnectionType string `json:"connection_type"`
}

type UpdateCustomerRequest struct {
	ID       string  `json:"-"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"is_active"`
}

type GetCustomerRequest struct {
	ID string
}

type ListCustomerRequest struct {
	PageToken      string
	PageSize       int32
	Name           string
	CustomerCode   string
	ConnectionType string
	IsActive       *bool
}

type ListCustomerFilter struct {
	Name           string
	CustomerCode   string
	ConnectionType string
	IsActive       *bool
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
}

var (
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidEmail          = errors.New("invalid_email")
	ErrInvalidConnectionType = errors.New("invalid_connection_type")
	ErrInvalidID             = errors.New("invalid_id")
	ErrCodeTaken             = errors.New("customer_code_taken")
	ErrNotFound              = errors.New("not_found")
)
