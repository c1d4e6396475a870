package server

import (
	"net/http"
	"strings"

	alarmdomain "github.com/arusnet/arus/internal/alarm/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type raiseAlarmRequest struct {
	DeviceID  string `json:"device_id"`
	AlarmType string `json:"alarm_type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

func (s *Server) RaiseAlarm(c *gin.Context) {
	var req raiseAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.alarmSvc.Raise(c.Request.Context(), alarmdomain.RaiseAlarmRequest{
		DeviceID:  strings.TrimSpace(req.DeviceID),
		AlarmType: strings.TrimSpace(req.AlarmType),
		Severity:  strings.TrimSpace(req.Severity),
		Message:   strings.TrimSpace(req.Message),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAlarmTransition(c, resp.Severity, "raised")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAlarms(c *gin.Context) {
	var query struct {
		pagination.Pagination
		DeviceID     string `form:"device_id"`
		Severity     string `form:"severity"`
		Resolved     string `form:"resolved"`
		Acknowledged string `form:"acknowledged"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resolved, err := parseOptionalBool(query.Resolved)
	if err != nil {
		AbortWithError(c, newValidationError("resolved", "invalid_resolved", "resolved must be true or false"))
		return
	}
	acknowledged, err := parseOptionalBool(query.Acknowledged)
	if err != nil {
		AbortWithError(c, newValidationError("acknowledged", "invalid_acknowledged", "acknowledged must be true or false"))
		return
	}

	resp, err := s.alarmSvc.List(c.Request.Context(), alarmdomain.ListAlarmRequest{
		DeviceID:     strings.TrimSpace(query.DeviceID),
		Severity:     strings.TrimSpace(query.Severity),
		Resolved:     resolved,
		Acknowledged: acknowledged,
		PageToken:    query.PageToken,
		PageSize:     int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAlarmByID(c *gin.Context) {
	resp, err := s.alarmSvc.GetByID(c.Request.Context(), alarmdomain.GetAlarmRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type acknowledgeAlarmRequest struct {
	By string `json:"acknowledged_by"`
}

// AcknowledgeAlarm accepts an empty body; the service falls back to the
// authenticated username when no acknowledger is named.
func (s *Server) AcknowledgeAlarm(c *gin.Context) {
	var req acknowledgeAlarmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.alarmSvc.Acknowledge(c.Request.Context(), alarmdomain.AcknowledgeAlarmRequest{
		ID: strings.TrimSpace(c.Param("id")),
		By: strings.TrimSpace(req.By),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAlarmTransition(c, resp.Severity, "acknowledged")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResolveAlarm(c *gin.Context) {
	resp, err := s.alarmSvc.Resolve(c.Request.Context(), alarmdomain.ResolveAlarmRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAlarmTransition(c, resp.Severity, "resolved")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) recordAlarmTransition(c *gin.Context, severity alarmdomain.AlarmSeverity, transition string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.RecordAlarmTransition(c.Request.Context(), string(severity), transition)
}
