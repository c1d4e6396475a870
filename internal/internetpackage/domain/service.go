package domain

import (
	"context"
	"errors"

	"github.com/arusnet/arus/pkg/db/pagination"
)

type CreatePackageRequest struct {
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	ConnectionType string  `json:"connection_type"`
	BandwidthUp    int     `json:"bandwidth_up"`
	BandwidthDown  int     `json:"bandwidth_down"`
	Price          int64   `json:"price"`
	ValidityDays   int     `json:"validity_days"`
}

type UpdatePackageRequest struct {
	ID            string  `json:"-"`
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	BandwidthUp   *int    `json:"bandwidth_up"`
	BandwidthDown *int    `json:"bandwidth_down"`
	Price         *int64  `json:"price"`
	ValidityDays  *int    `json:"validity_days"`
	IsActive      *bool   `json:"is_active"`
}

type GetPackageRequest struct {
	ID string
}

type ListPackageRequest struct {
	PageToken      string
	PageSize       int32
	Name           string
	ConnectionType string
	IsActive       *bool
}

type ListPackageFilter struct {
	Name           string
	ConnectionType string
	IsActive       *bool
}

type ListPackageResponse struct {
	pagination.PageInfo
	Packages []InternetPackage `json:"packages"`
}

type Service interface {
	Create(context.Context, CreatePackageRequest) (InternetPackage, error)
	Update(context.Context, UpdatePackageRequest) (InternetPackage, error)
	GetByID(context.Context, GetPackageRequest) (InternetPackage, error)
	List(context.Context, ListPackageRequest) (ListPackageResponse, error)
}

var (
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidConnectionType = errors.New("invalid_connection_type")
	ErrInvalidBandwidth      = errors.New("invalid_bandwidth")
	ErrInvalidPrice          = errors.New("invalid_price")
	ErrInvalidValidity       = errors.New("invalid_validity_days")
	ErrInvalidID             = errors.New("invalid_id")
	ErrNotFound              = errors.New("not_found")
	ErrPackageInUse          = errors.New("package_in_use")
)
