package server

import (
	"net/http"
	"strings"

	internetpackagedomain "github.com/arusnet/arus/internal/internetpackage/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type createPackageRequest struct {
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	ConnectionType string  `json:"connection_type"`
	BandwidthUp    int     `json:"bandwidth_up"`
	BandwidthDown  int     `json:"bandwidth_down"`
	Price          int64   `json:"price"`
	ValidityDays   int     `json:"validity_days"`
}

func (s *Server) CreatePackage(c *gin.Context) {
	var req createPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.packageSvc.Create(c.Request.Context(), internetpackagedomain.CreatePackageRequest{
		Name:           strings.TrimSpace(req.Name),
		Description:    trimStringPtr(req.Description),
		ConnectionType: strings.TrimSpace(req.ConnectionType),
		BandwidthUp:    req.BandwidthUp,
		BandwidthDown:  req.BandwidthDown,
		Price:          req.Price,
		ValidityDays:   req.ValidityDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPackages(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name           string `form:"name"`
		ConnectionType string `form:"connection_type"`
		IsActive       string `form:"is_active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	isActive, err := parseOptionalBool(query.IsActive)
	if err != nil {
		AbortWithError(c, newValidationError("is_active", "invalid_is_active", "invalid is_active"))
		return
	}

	resp, err := s.packageSvc.List(c.Request.Context(), internetpackagedomain.ListPackageRequest{
		PageToken:      query.PageToken,
		PageSize:       int32(query.PageSize),
		Name:           strings.TrimSpace(query.Name),
		ConnectionType: strings.TrimSpace(query.ConnectionType),
		IsActive:       isActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPackageByID(c *gin.Context) {
	resp, err := s.packageSvc.GetByID(c.Request.Context(), internetpackagedomain.GetPackageRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePackageRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	BandwidthUp   *int    `json:"bandwidth_up"`
	BandwidthDown *int    `json:"bandwidth_down"`
	Price         *int64  `json:"price"`
	ValidityDays  *int    `json:"validity_days"`
	IsActive      *bool   `json:"is_active"`
}

func (s *Server) UpdatePackage(c *gin.Context) {
	var req updatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.packageSvc.Update(c.Request.Context(), internetpackagedomain.UpdatePackageRequest{
		ID:            strings.TrimSpace(c.Param("id")),
		Name:          trimStringPtr(req.Name),
		Description:   trimStringPtr(req.Description),
		BandwidthUp:   req.BandwidthUp,
		BandwidthDown: req.BandwidthDown,
		Price:         req.Price,
		ValidityDays:  req.ValidityDays,
		IsActive:      req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
