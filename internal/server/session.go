package server

import (
	"net/http"
	"strings"

	sessiondomain "github.com/arusnet/arus/internal/session/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

const (
	sessionKindPPPoE   = "pppoe"
	sessionKindHotspot = "hotspot"
)

type openPPPoESessionRequest struct {
	Username   string `json:"username"`
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
	DeviceID   string `json:"device_id"`
	IPAddress  string `json:"ip_address"`
	MACAddress string `json:"mac_address"`
}

func (s *Server) OpenPPPoESession(c *gin.Context) {
	var req openPPPoESessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.OpenPPPoE(c.Request.Context(), sessiondomain.OpenPPPoERequest{
		Username:   strings.TrimSpace(req.Username),
		SessionID:  strings.TrimSpace(req.SessionID),
		CustomerID: strings.TrimSpace(req.CustomerID),
		DeviceID:   strings.TrimSpace(req.DeviceID),
		IPAddress:  strings.TrimSpace(req.IPAddress),
		MACAddress: strings.TrimSpace(req.MACAddress),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordSessionEvent(c, sessionKindPPPoE, "open")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type refreshSessionRequest struct {
	Uptime    *int64 `json:"uptime"`
	BytesIn   *int64 `json:"bytes_in"`
	BytesOut  *int64 `json:"bytes_out"`
	IPAddress string `json:"ip_address"`
}

func (s *Server) RefreshPPPoESession(c *gin.Context) {
	var req refreshSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.RefreshPPPoE(c.Request.Context(), sessiondomain.RefreshSessionRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		Uptime:    req.Uptime,
		BytesIn:   req.BytesIn,
		BytesOut:  req.BytesOut,
		IPAddress: strings.TrimSpace(req.IPAddress),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordSessionEvent(c, sessionKindPPPoE, "refresh")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type closeSessionRequest struct {
	Uptime   *int64 `json:"uptime"`
	BytesIn  *int64 `json:"bytes_in"`
	BytesOut *int64 `json:"bytes_out"`
}

// ClosePPPoESession accepts an empty body; the accounting stop does not
// always carry final counters.
func (s *Server) ClosePPPoESession(c *gin.Context) {
	var req closeSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.sessionSvc.ClosePPPoE(c.Request.Context(), sessiondomain.CloseSessionRequest{
		ID:       strings.TrimSpace(c.Param("id")),
		Uptime:   req.Uptime,
		BytesIn:  req.BytesIn,
		BytesOut: req.BytesOut,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordSessionEvent(c, sessionKindPPPoE, "close")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPPPoESession(c *gin.Context) {
	resp, err := s.sessionSvc.GetPPPoE(c.Request.Context(), sessiondomain.GetSessionRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPPPoESessions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Username   string `form:"username"`
		SessionID  string `form:"session_id"`
		CustomerID string `form:"customer_id"`
		DeviceID   string `form:"device_id"`
		IsActive   string `form:"is_active"`
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

	resp, err := s.sessionSvc.ListPPPoE(c.Request.Context(), sessiondomain.ListPPPoERequest{
		Username:   strings.TrimSpace(query.Username),
		SessionID:  strings.TrimSpace(query.SessionID),
		CustomerID: strings.TrimSpace(query.CustomerID),
		DeviceID:   strings.TrimSpace(query.DeviceID),
		IsActive:   isActive,
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type openHotspotSessionRequest struct {
	Username   string `json:"username"`
	MACAddress string `json:"mac_address"`
	CustomerID string `json:"customer_id"`
	IPAddress  string `json:"ip_address"`
}

func (s *Server) OpenHotspotSession(c *gin.Context) {
	var req openHotspotSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.OpenHotspot(c.Request.Context(), sessiondomain.OpenHotspotRequest{
		Username:   strings.TrimSpace(req.Username),
		MACAddress: strings.TrimSpace(req.MACAddress),
		CustomerID: strings.TrimSpace(req.CustomerID),
		IPAddress:  strings.TrimSpace(req.IPAddress),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordSessionEvent(c, sessionKindHotspot, "open")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RefreshHotspotSession(c *gin.Context) {
	var req refreshSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.RefreshHotspot(c.Request.Context(), sessiondomain.RefreshSessionRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		Uptime:    req.Uptime,
		BytesIn:   req.BytesIn,
		BytesOut:  req.BytesOut,
		IPAddress: strings.TrimSpace(req.IPAddress),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordSessionEvent(c, sessionKindHotspot, "refresh")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CloseHotspotSession(c *gin.Context) {
	var req closeSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.sessionSvc.CloseHotspot(c.Request.Context(), sessiondomain.CloseSessionRequest{
		ID:       strings.TrimSpace(c.Param("id")),
		Uptime:   req.Uptime,
		BytesIn:  req.BytesIn,
		BytesOut: req.BytesOut,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordSessionEvent(c, sessionKindHotspot, "close")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetHotspotSession(c *gin.Context) {
	resp, err := s.sessionSvc.GetHotspot(c.Request.Context(), sessiondomain.GetSessionRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListHotspotSessions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Username   string `form:"username"`
		MACAddress string `form:"mac_address"`
		CustomerID string `form:"customer_id"`
		IsActive   string `form:"is_active"`
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

	resp, err := s.sessionSvc.ListHotspot(c.Request.Context(), sessiondomain.ListHotspotRequest{
		Username:   strings.TrimSpace(query.Username),
		MACAddress: strings.TrimSpace(query.MACAddress),
		CustomerID: strings.TrimSpace(query.CustomerID),
		IsActive:   isActive,
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) recordSessionEvent(c *gin.Context, kind, event string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordSessionEvent(c.Request.Context(), kind, event)
}
