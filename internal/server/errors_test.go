package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	alarmdomain "github.com/arusnet/arus/internal/alarm/domain"
	customerdomain "github.com/arusnet/arus/internal/customer/domain"
	devicedomain "github.com/arusnet/arus/internal/device/domain"
	identitydomain "github.com/arusnet/arus/internal/identity/domain"
	paymentdomain "github.com/arusnet/arus/internal/payment/domain"
	sessiondomain "github.com/arusnet/arus/internal/session/domain"
	subscriptiondomain "github.com/arusnet/arus/internal/subscription/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func performWithError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, err)
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestErrorMappingStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"field validation", newValidationError("name", "invalid_name", "name is required"), http.StatusBadRequest},
		{"domain validation sentinel", customerdomain.ErrInvalidConnectionType, http.StatusBadRequest},
		{"bad credentials", identitydomain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"expired token", identitydomain.ErrTokenExpired, http.StatusUnauthorized},
		{"bad webhook signature", paymentdomain.ErrInvalidSignature, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"username taken", identitydomain.ErrUsernameTaken, http.StatusConflict},
		{"overlapping subscription", subscriptiondomain.ErrSubscriptionOverlap, http.StatusConflict},
		{"session replay", sessiondomain.ErrSessionOpen, http.StatusConflict},
		{"resolved alarm", alarmdomain.ErrAlarmResolved, http.StatusConflict},
		{"topology cycle", devicedomain.ErrCycle, http.StatusUnprocessableEntity},
		{"self connection", devicedomain.ErrInvalidConnection, http.StatusUnprocessableEntity},
		{"missing row", customerdomain.ErrNotFound, http.StatusNotFound},
		{"missing parent", devicedomain.ErrParentNotFound, http.StatusNotFound},
		{"gorm not found", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"redis down", ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := performWithError(t, tc.err)
			assert.Equal(t, tc.status, resp.Code)
		})
	}
}

func TestValidationErrorPayloadCarriesFields(t *testing.T) {
	resp := performWithError(t, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))

	assert.Equal(t, "validation_error", body.Error.Type)
	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "start_date", body.Error.Errors[0].Field)
	assert.Equal(t, "invalid_start_date", body.Error.Errors[0].Code)
}

func TestSentinelValidationErrorDerivesField(t *testing.T) {
	resp := performWithError(t, alarmdomain.ErrInvalidSeverity)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))

	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "alarm_severity", body.Error.Errors[0].Field)
	assert.Equal(t, "invalid_alarm_severity", body.Error.Errors[0].Code)
}

func TestInternalErrorHidesDetail(t *testing.T) {
	resp := performWithError(t, errors.New("pq: connection refused"))
	require.Equal(t, http.StatusInternalServerError, resp.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))

	assert.Equal(t, "internal_error", body.Error.Type)
	assert.NotContains(t, resp.Body.String(), "connection refused")
}

func TestErrorMiddlewareLeavesWrittenResponsesAlone(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		_ = c.Error(errors.New("late failure"))
	})

	req := httptest.NewRequest(http.MethodGet, "/written", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"ok"`)
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, errCode := classifyErrorForLog(devicedomain.ErrCycle)
	assert.Equal(t, "unprocessable", errType)
	assert.Equal(t, "topology_cycle", errCode)

	errType, errCode = classifyErrorForLog(nil)
	assert.Empty(t, errType)
	assert.Empty(t, errCode)
}
