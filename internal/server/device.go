package server

import (
	"net/http"
	"strings"

	devicedomain "github.com/arusnet/arus/internal/device/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type createDeviceRequest struct {
	Name            string   `json:"name"`
	DeviceType      string   `json:"device_type"`
	IPAddress       string   `json:"ip_address"`
	MACAddress      string   `json:"mac_address"`
	Location        string   `json:"location"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	ParentID        string   `json:"parent_device_id"`
	SNMPCommunity   string   `json:"snmp_community"`
	SNMPPort        int32    `json:"snmp_port"`
	APIUsername     string   `json:"api_username"`
	APIPassword     string   `json:"api_password"`
	APIPort         *int32   `json:"api_port"`
	FirmwareVersion string   `json:"firmware_version"`
	Model           string   `json:"model"`
	SerialNumber    string   `json:"serial_number"`
}

func (s *Server) CreateDevice(c *gin.Context) {
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.deviceSvc.Create(c.Request.Context(), devicedomain.CreateDeviceRequest{
		Name:            strings.TrimSpace(req.Name),
		DeviceType:      strings.TrimSpace(req.DeviceType),
		IPAddress:       strings.TrimSpace(req.IPAddress),
		MACAddress:      strings.TrimSpace(req.MACAddress),
		Location:        strings.TrimSpace(req.Location),
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		ParentID:        strings.TrimSpace(req.ParentID),
		SNMPCommunity:   strings.TrimSpace(req.SNMPCommunity),
		SNMPPort:        req.SNMPPort,
		APIUsername:     strings.TrimSpace(req.APIUsername),
		APIPassword:     req.APIPassword,
		APIPort:         req.APIPort,
		FirmwareVersion: strings.TrimSpace(req.FirmwareVersion),
		Model:           strings.TrimSpace(req.Model),
		SerialNumber:    strings.TrimSpace(req.SerialNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDevices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		DeviceType string `form:"device_type"`
		Status     string `form:"status"`
		ParentID   string `form:"parent_device_id"`
		Name       string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.deviceSvc.List(c.Request.Context(), devicedomain.ListDeviceRequest{
		DeviceType: strings.TrimSpace(query.DeviceType),
		Status:     strings.TrimSpace(query.Status),
		ParentID:   strings.TrimSpace(query.ParentID),
		Name:       strings.TrimSpace(query.Name),
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDeviceByID(c *gin.Context) {
	resp, err := s.deviceSvc.GetByID(c.Request.Context(), devicedomain.GetDeviceRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateDeviceRequest struct {
	Name            *string  `json:"name"`
	IPAddress       *string  `json:"ip_address"`
	MACAddress      *string  `json:"mac_address"`
	Location        *string  `json:"location"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	Status          *string  `json:"status"`
	ParentID        *string  `json:"parent_device_id"`
	SNMPCommunity   *string  `json:"snmp_community"`
	SNMPPort        *int32   `json:"snmp_port"`
	APIUsername     *string  `json:"api_username"`
	APIPassword     *string  `json:"api_password"`
	APIPort         *int32   `json:"api_port"`
	FirmwareVersion *string  `json:"firmware_version"`
	Model           *string  `json:"model"`
	SerialNumber    *string  `json:"serial_number"`
}

func (s *Server) UpdateDevice(c *gin.Context) {
	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.deviceSvc.Update(c.Request.Context(), devicedomain.UpdateDeviceRequest{
		ID:              strings.TrimSpace(c.Param("id")),
		Name:            trimStringPtr(req.Name),
		IPAddress:       trimStringPtr(req.IPAddress),
		MACAddress:      trimStringPtr(req.MACAddress),
		Location:        trimStringPtr(req.Location),
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		Status:          trimStringPtr(req.Status),
		ParentID:        trimStringPtr(req.ParentID),
		SNMPCommunity:   trimStringPtr(req.SNMPCommunity),
		SNMPPort:        req.SNMPPort,
		APIUsername:     trimStringPtr(req.APIUsername),
		APIPassword:     req.APIPassword,
		APIPort:         req.APIPort,
		FirmwareVersion: trimStringPtr(req.FirmwareVersion),
		Model:           trimStringPtr(req.Model),
		SerialNumber:    trimStringPtr(req.SerialNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDevice(c *gin.Context) {
	if err := s.deviceSvc.Delete(c.Request.Context(), devicedomain.DeleteDeviceRequest{
		ID: strings.TrimSpace(c.Param("id")),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetDeviceTopology(c *gin.Context) {
	resp, err := s.deviceSvc.Topology(c.Request.Context(), devicedomain.TopologyRequest{
		RootID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type deviceHeartbeatRequest struct {
	Status string `json:"status"`
}

func (s *Server) DeviceHeartbeat(c *gin.Context) {
	var req deviceHeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.deviceSvc.Heartbeat(c.Request.Context(), devicedomain.HeartbeatRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: strings.TrimSpace(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
