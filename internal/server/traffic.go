package server

import (
	"net/http"
	"strings"
	"time"

	devicedomain "github.com/arusnet/arus/internal/device/domain"
	trafficdomain "github.com/arusnet/arus/internal/traffic/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type ingestTrafficRequest struct {
	DeviceID      string     `json:"device_id"`
	InterfaceName string     `json:"interface_name"`
	BytesIn       int64      `json:"bytes_in"`
	BytesOut      int64      `json:"bytes_out"`
	PacketsIn     int64      `json:"packets_in"`
	PacketsOut    int64      `json:"packets_out"`
	ErrorsIn      int64      `json:"errors_in"`
	ErrorsOut     int64      `json:"errors_out"`
	Timestamp     *time.Time `json:"timestamp"`
}

func (s *Server) IngestTraffic(c *gin.Context) {
	var req ingestTrafficRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.trafficSvc.Ingest(c.Request.Context(), trafficdomain.IngestRequest{
		DeviceID:      strings.TrimSpace(req.DeviceID),
		InterfaceName: strings.TrimSpace(req.InterfaceName),
		BytesIn:       req.BytesIn,
		BytesOut:      req.BytesOut,
		PacketsIn:     req.PacketsIn,
		PacketsOut:    req.PacketsOut,
		ErrorsIn:      req.ErrorsIn,
		ErrorsOut:     req.ErrorsOut,
		Timestamp:     req.Timestamp,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordTrafficIngestMetric(c, resp.DeviceID.String())
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Samples carry only a device id, so the type label costs one primary
// key read. Skipped entirely when metrics are off.
func (s *Server) recordTrafficIngestMetric(c *gin.Context, deviceID string) {
	if s.obsMetrics == nil {
		return
	}

	deviceType := "unknown"
	device, err := s.deviceSvc.GetByID(c.Request.Context(), devicedomain.GetDeviceRequest{ID: deviceID})
	if err == nil {
		deviceType = string(device.DeviceType)
	}

	s.obsMetrics.RecordTrafficIngest(c.Request.Context(), deviceType)
}

func (s *Server) QueryDeviceTraffic(c *gin.Context) {
	var query struct {
		pagination.Pagination
		InterfaceName string `form:"interface_name"`
		Since         string `form:"since"`
		Until         string `form:"until"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	since, err := parseOptionalTime(query.Since, false)
	if err != nil {
		AbortWithError(c, newValidationError("since", "invalid_since", "invalid since"))
		return
	}

	until, err := parseOptionalTime(query.Until, true)
	if err != nil {
		AbortWithError(c, newValidationError("until", "invalid_until", "invalid until"))
		return
	}

	resp, err := s.trafficSvc.Query(c.Request.Context(), trafficdomain.QueryTrafficRequest{
		DeviceID:      strings.TrimSpace(c.Param("id")),
		InterfaceName: strings.TrimSpace(query.InterfaceName),
		Since:         since,
		Until:         until,
		PageSize:      int32(query.PageSize),
		PageToken:     query.PageToken,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
