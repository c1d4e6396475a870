package server

import (
	"net/http"
	"strings"
	"time"

	notificationdomain "github.com/arusnet/arus/internal/notification/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type enqueueNotificationRequest struct {
	NotificationType string         `json:"notification_type"`
	Recipient        string         `json:"recipient"`
	Subject          string         `json:"subject"`
	Message          string         `json:"message"`
	Priority         int32          `json:"priority"`
	ScheduledAt      *time.Time     `json:"scheduled_at"`
	TemplateName     string         `json:"template_name"`
	Data             map[string]any `json:"data"`
}

// EnqueueNotification queues a message either verbatim or rendered from a
// named template when template_name is set.
func (s *Server) EnqueueNotification(c *gin.Context) {
	var req enqueueNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var (
		resp notificationdomain.NotificationQueue
		err  error
	)
	if name := strings.TrimSpace(req.TemplateName); name != "" {
		resp, err = s.notificationSvc.EnqueueFromTemplate(c.Request.Context(), notificationdomain.EnqueueFromTemplateRequest{
			TemplateName: name,
			Recipient:    strings.TrimSpace(req.Recipient),
			Priority:     req.Priority,
			ScheduledAt:  req.ScheduledAt,
			Data:         req.Data,
		})
	} else {
		resp, err = s.notificationSvc.Enqueue(c.Request.Context(), notificationdomain.EnqueueRequest{
			NotificationType: strings.TrimSpace(req.NotificationType),
			Recipient:        strings.TrimSpace(req.Recipient),
			Subject:          strings.TrimSpace(req.Subject),
			Message:          req.Message,
			Priority:         req.Priority,
			ScheduledAt:      req.ScheduledAt,
		})
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListNotifications(c *gin.Context) {
	var query struct {
		pagination.Pagination
		NotificationType string `form:"notification_type"`
		Status           string `form:"status"`
		Recipient        string `form:"recipient"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), notificationdomain.ListNotificationRequest{
		NotificationType: strings.TrimSpace(query.NotificationType),
		Status:           strings.TrimSpace(query.Status),
		Recipient:        strings.TrimSpace(query.Recipient),
		PageToken:        query.PageToken,
		PageSize:         int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetNotificationByID(c *gin.Context) {
	resp, err := s.notificationSvc.GetByID(c.Request.Context(), notificationdomain.GetNotificationRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createTemplateRequest struct {
	Name             string `json:"name"`
	NotificationType string `json:"notification_type"`
	Subject          string `json:"subject"`
	Template         string `json:"template"`
}

func (s *Server) CreateNotificationTemplate(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.notificationSvc.CreateTemplate(c.Request.Context(), notificationdomain.CreateTemplateRequest{
		Name:             strings.TrimSpace(req.Name),
		NotificationType: strings.TrimSpace(req.NotificationType),
		Subject:          strings.TrimSpace(req.Subject),
		Template:         req.Template,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListNotificationTemplates(c *gin.Context) {
	var query struct {
		pagination.Pagination
		NotificationType string `form:"notification_type"`
		IsActive         string `form:"is_active"`
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

	resp, err := s.notificationSvc.ListTemplates(c.Request.Context(), notificationdomain.ListTemplateRequest{
		NotificationType: strings.TrimSpace(query.NotificationType),
		IsActive:         isActive,
		PageToken:        query.PageToken,
		PageSize:         int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetNotificationTemplateByID(c *gin.Context) {
	resp, err := s.notificationSvc.GetTemplate(c.Request.Context(), notificationdomain.GetTemplateRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateTemplateRequest struct {
	Subject  *string `json:"subject"`
	Template *string `json:"template"`
	IsActive *bool   `json:"is_active"`
}

func (s *Server) UpdateNotificationTemplate(c *gin.Context) {
	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.notificationSvc.UpdateTemplate(c.Request.Context(), notificationdomain.UpdateTemplateRequest{
		ID:       strings.TrimSpace(c.Param("id")),
		Subject:  trimStringPtr(req.Subject),
		Template: req.Template,
		IsActive: req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
