package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	notificationdomain "github.com/arusnet/arus/internal/notification/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationService struct {
	directCalls   int
	templateCalls int
	lastDirect    notificationdomain.EnqueueRequest
	lastTemplate  notificationdomain.EnqueueFromTemplateRequest
}

func (f *fakeNotificationService) Enqueue(ctx context.Context, req notificationdomain.EnqueueRequest) (notificationdomain.NotificationQueue, error) {
	f.directCalls++
	f.lastDirect = req
	return notificationdomain.NotificationQueue{ID: snowflake.ID(1)}, nil
}

func (f *fakeNotificationService) EnqueueFromTemplate(ctx context.Context, req notificationdomain.EnqueueFromTemplateRequest) (notificationdomain.NotificationQueue, error) {
	f.templateCalls++
	f.lastTemplate = req
	return notificationdomain.NotificationQueue{ID: snowflake.ID(2)}, nil
}

func (f *fakeNotificationService) GetByID(ctx context.Context, req notificationdomain.GetNotificationRequest) (notificationdomain.NotificationQueue, error) {
	return notificationdomain.NotificationQueue{}, nil
}

func (f *fakeNotificationService) List(ctx context.Context, req notificationdomain.ListNotificationRequest) (notificationdomain.ListNotificationResponse, error) {
	return notificationdomain.ListNotificationResponse{}, nil
}

func (f *fakeNotificationService) DequeueReady(ctx context.Context, now time.Time, limit int) ([]notificationdomain.NotificationQueue, error) {
	return nil, nil
}

func (f *fakeNotificationService) RecordAttempt(ctx context.Context, id snowflake.ID, attemptErr error) error {
	return nil
}

func (f *fakeNotificationService) CreateTemplate(ctx context.Context, req notificationdomain.CreateTemplateRequest) (notificationdomain.NotificationTemplate, error) {
	return notificationdomain.NotificationTemplate{}, nil
}

func (f *fakeNotificationService) UpdateTemplate(ctx context.Context, req notificationdomain.UpdateTemplateRequest) (notificationdomain.NotificationTemplate, error) {
	return notificationdomain.NotificationTemplate{}, nil
}

func (f *fakeNotificationService) GetTemplate(ctx context.Context, req notificationdomain.GetTemplateRequest) (notificationdomain.NotificationTemplate, error) {
	return notificationdomain.NotificationTemplate{}, nil
}

func (f *fakeNotificationService) ListTemplates(ctx context.Context, req notificationdomain.ListTemplateRequest) (notificationdomain.ListTemplateResponse, error) {
	return notificationdomain.ListTemplateResponse{}, nil
}

func notificationRouter(svc notificationdomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	srv := &Server{notificationSvc: svc}
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/notifications", srv.EnqueueNotification)
	return router
}

func TestEnqueueNotificationDirect(t *testing.T) {
	notificationSvc := &fakeNotificationService{}
	router := notificationRouter(notificationSvc)

	body := `{"notification_type":"email","recipient":"budi@example.com","subject":"Tagihan","message":"Tagihan Anda terbit."}`
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, notificationSvc.directCalls)
	assert.Zero(t, notificationSvc.templateCalls)
	assert.Equal(t, "email", notificationSvc.lastDirect.NotificationType)
	assert.Equal(t, "budi@example.com", notificationSvc.lastDirect.Recipient)
}

func TestEnqueueNotificationFromTemplate(t *testing.T) {
	notificationSvc := &fakeNotificationService{}
	router := notificationRouter(notificationSvc)

	body := `{"template_name":"invoice_created","recipient":"budi@example.com","data":{"invoice_number":"INV-202608-0001"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, notificationSvc.templateCalls)
	assert.Zero(t, notificationSvc.directCalls)
	assert.Equal(t, "invoice_created", notificationSvc.lastTemplate.TemplateName)
	assert.Equal(t, "INV-202608-0001", notificationSvc.lastTemplate.Data["invoice_number"])
}
