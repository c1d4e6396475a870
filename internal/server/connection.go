package server

import (
	"net/http"
	"strings"

	devicedomain "github.com/arusnet/arus/internal/device/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type addConnectionRequest struct {
	FromDeviceID   string `json:"from_device_id"`
	ToDeviceID     string `json:"to_device_id"`
	ConnectionType string `json:"connection_type"`
	PortFrom       string `json:"port_from"`
	PortTo         string `json:"port_to"`
}

func (s *Server) AddConnection(c *gin.Context) {
	var req addConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.deviceSvc.AddConnection(c.Request.Context(), devicedomain.AddConnectionRequest{
		FromDeviceID:   strings.TrimSpace(req.FromDeviceID),
		ToDeviceID:     strings.TrimSpace(req.ToDeviceID),
		ConnectionType: strings.TrimSpace(req.ConnectionType),
		PortFrom:       strings.TrimSpace(req.PortFrom),
		PortTo:         strings.TrimSpace(req.PortTo),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListConnections(c *gin.Context) {
	var query struct {
		pagination.Pagination
		DeviceID string `form:"device_id"`
		IsActive string `form:"is_active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	isActive, err := parseOptionalBool(query.IsActive)
	if err != nil {
		AbortWithError(c, newValidationError("is_active", "invalid_is_active", "is_active must be true or false"))
		return
	}

	resp, err := s.deviceSvc.ListConnections(c.Request.Context(), devicedomain.ListConnectionRequest{
		DeviceID:  strings.TrimSpace(query.DeviceID),
		IsActive:  isActive,
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveConnection(c *gin.Context) {
	if err := s.deviceSvc.RemoveConnection(c.Request.Context(), devicedomain.DeleteConnectionRequest{
		ID: strings.TrimSpace(c.Param("id")),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
