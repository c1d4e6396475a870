package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	paymentdomain "github.com/arusnet/arus/internal/payment/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWebhookService struct {
	err          error
	seenProvider string
	seenPayload  []byte
	seenHeaders  http.Header
}

func (f *fakeWebhookService) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	f.seenProvider = provider
	f.seenPayload = payload
	f.seenHeaders = headers
	return f.err
}

func webhookRouter(svc paymentdomain.WebhookService) (*Server, *gin.Engine) {
	gin.SetMode(gin.TestMode)

	srv := &Server{webhookSvc: svc}
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/webhooks/:provider", srv.HandlePaymentWebhook)
	return srv, router
}

func TestWebhookDeliveryAccepted(t *testing.T) {
	webhookSvc := &fakeWebhookService{}
	_, router := webhookRouter(webhookSvc)

	body := `{"id":"inv-1","status":"PAID"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/xendit", bytes.NewBufferString(body))
	req.Header.Set("X-Callback-Token", "secret")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"ok"`)
	assert.Equal(t, "xendit", webhookSvc.seenProvider)
	assert.Equal(t, []byte(body), webhookSvc.seenPayload)
	assert.Equal(t, "secret", webhookSvc.seenHeaders.Get("X-Callback-Token"))
}

func TestWebhookReplayStillAnswersOK(t *testing.T) {
	webhookSvc := &fakeWebhookService{err: paymentdomain.ErrEventAlreadyProcessed}
	_, router := webhookRouter(webhookSvc)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/xendit", bytes.NewBufferString(`{"status":"PAID"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"ok"`)
}

func TestWebhookBadSignatureAnswers401(t *testing.T) {
	webhookSvc := &fakeWebhookService{err: paymentdomain.ErrInvalidSignature}
	_, router := webhookRouter(webhookSvc)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/xendit", bytes.NewBufferString(`{"status":"PAID"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestWebhookMalformedBodyAnswers400(t *testing.T) {
	webhookSvc := &fakeWebhookService{err: paymentdomain.ErrInvalidPayload}
	_, router := webhookRouter(webhookSvc)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/xendit", bytes.NewBufferString("not json"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestWebhookUnknownProviderAnswers404(t *testing.T) {
	webhookSvc := &fakeWebhookService{err: paymentdomain.ErrProviderNotFound}
	_, router := webhookRouter(webhookSvc)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/doku", bytes.NewBufferString(`{"status":"PAID"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}
