package server

import (
	"errors"
	"net/http"
	"strings"

	alarmdomain "github.com/arusnet/arus/internal/alarm/domain"
	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	"github.com/arusnet/arus/internal/authorization"
	customerdomain "github.com/arusnet/arus/internal/customer/domain"
	devicedomain "github.com/arusnet/arus/internal/device/domain"
	identitydomain "github.com/arusnet/arus/internal/identity/domain"
	internetpackagedomain "github.com/arusnet/arus/internal/internetpackage/domain"
	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	notificationdomain "github.com/arusnet/arus/internal/notification/domain"
	paymentdomain "github.com/arusnet/arus/internal/payment/domain"
	sessiondomain "github.com/arusnet/arus/internal/session/domain"
	subscriptiondomain "github.com/arusnet/arus/internal/subscription/domain"
	sysconfigdomain "github.com/arusnet/arus/internal/sysconfig/domain"
	systemlogdomain "github.com/arusnet/arus/internal/systemlog/domain"
	trafficdomain "github.com/arusnet/arus/internal/traffic/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ErrorHandlingMiddleware renders the last gin error after the handler
// chain, so handlers only ever call AbortWithError.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isUnprocessableError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case errors.Is(err, identitydomain.ErrInvalidUsername),
		errors.Is(err, identitydomain.ErrInvalidEmail),
		errors.Is(err, identitydomain.ErrInvalidPassword),
		errors.Is(err, identitydomain.ErrInvalidRole),
		errors.Is(err, identitydomain.ErrInvalidID):
		return true
	case errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidEmail),
		errors.Is(err, customerdomain.ErrInvalidConnectionType),
		errors.Is(err, customerdomain.ErrInvalidID):
		return true
	case errors.Is(err, internetpackagedomain.ErrInvalidName),
		errors.Is(err, internetpackagedomain.ErrInvalidConnectionType),
		errors.Is(err, internetpackagedomain.ErrInvalidBandwidth),
		errors.Is(err, internetpackagedomain.ErrInvalidPrice),
		errors.Is(err, internetpackagedomain.ErrInvalidValidity),
		errors.Is(err, internetpackagedomain.ErrInvalidID):
		return true
	case errors.Is(err, subscriptiondomain.ErrInvalidCustomer),
		errors.Is(err, subscriptiondomain.ErrInvalidPackage),
		errors.Is(err, subscriptiondomain.ErrInvalidID):
		return true
	case errors.Is(err, invoicedomain.ErrInvalidSubscription),
		errors.Is(err, invoicedomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrInvalidID):
		return true
	case errors.Is(err, paymentdomain.ErrInvalidID),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		return true
	case errors.Is(err, devicedomain.ErrInvalidName),
		errors.Is(err, devicedomain.ErrInvalidType),
		errors.Is(err, devicedomain.ErrInvalidStatus),
		errors.Is(err, devicedomain.ErrInvalidID):
		return true
	case errors.Is(err, trafficdomain.ErrInvalidInterface),
		errors.Is(err, trafficdomain.ErrInvalidCounter),
		errors.Is(err, trafficdomain.ErrInvalidRange):
		return true
	case errors.Is(err, alarmdomain.ErrInvalidType),
		errors.Is(err, alarmdomain.ErrInvalidSeverity),
		errors.Is(err, alarmdomain.ErrInvalidMessage),
		errors.Is(err, alarmdomain.ErrInvalidActor),
		errors.Is(err, alarmdomain.ErrInvalidID):
		return true
	case errors.Is(err, sessiondomain.ErrInvalidUsername),
		errors.Is(err, sessiondomain.ErrInvalidSessionID),
		errors.Is(err, sessiondomain.ErrInvalidMAC),
		errors.Is(err, sessiondomain.ErrInvalidCounter),
		errors.Is(err, sessiondomain.ErrInvalidID):
		return true
	case errors.Is(err, notificationdomain.ErrInvalidType),
		errors.Is(err, notificationdomain.ErrInvalidRecipient),
		errors.Is(err, notificationdomain.ErrInvalidMessage),
		errors.Is(err, notificationdomain.ErrInvalidID),
		errors.Is(err, notificationdomain.ErrInvalidName),
		errors.Is(err, notificationdomain.ErrInvalidTemplate):
		return true
	case errors.Is(err, sysconfigdomain.ErrInvalidKey),
		errors.Is(err, sysconfigdomain.ErrInvalidValue):
		return true
	case errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidRange):
		return true
	case errors.Is(err, systemlogdomain.ErrInvalidLevel),
		errors.Is(err, systemlogdomain.ErrInvalidSource):
		return true
	case errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identitydomain.ErrInvalidCredentials),
		errors.Is(err, identitydomain.ErrUserInactive),
		errors.Is(err, identitydomain.ErrInvalidToken),
		errors.Is(err, identitydomain.ErrTokenRevoked),
		errors.Is(err, identitydomain.ErrTokenExpired),
		errors.Is(err, authorization.ErrUnauthenticated),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, identitydomain.ErrUsernameTaken),
		errors.Is(err, identitydomain.ErrEmailTaken),
		errors.Is(err, customerdomain.ErrCodeTaken),
		errors.Is(err, internetpackagedomain.ErrPackageInUse),
		errors.Is(err, subscriptiondomain.ErrSubscriptionOverlap),
		errors.Is(err, subscriptiondomain.ErrCustomerInactive),
		errors.Is(err, subscriptiondomain.ErrPackageInactive),
		errors.Is(err, invoicedomain.ErrGatewayIDTaken),
		errors.Is(err, paymentdomain.ErrInvalidState),
		errors.Is(err, devicedomain.ErrHasChildren),
		errors.Is(err, alarmdomain.ErrAlarmResolved),
		errors.Is(err, sessiondomain.ErrSessionOpen),
		errors.Is(err, sessiondomain.ErrSessionClosed),
		errors.Is(err, notificationdomain.ErrTemplateTaken),
		errors.Is(err, notificationdomain.ErrTemplateInactive):
		return true
	default:
		return false
	}
}

// Topology violations are well-formed requests the plant cannot accept.
func isUnprocessableError(err error) bool {
	switch {
	case errors.Is(err, devicedomain.ErrCycle),
		errors.Is(err, devicedomain.ErrInvalidConnection):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, identitydomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, internetpackagedomain.ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrCustomerNotFound),
		errors.Is(err, subscriptiondomain.ErrPackageNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrSubscriptionNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrInvoiceNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, devicedomain.ErrNotFound),
		errors.Is(err, devicedomain.ErrParentNotFound),
		errors.Is(err, devicedomain.ErrConnNotFound),
		errors.Is(err, trafficdomain.ErrDeviceNotFound),
		errors.Is(err, alarmdomain.ErrNotFound),
		errors.Is(err, alarmdomain.ErrDeviceNotFound),
		errors.Is(err, sessiondomain.ErrNotFound),
		errors.Is(err, sessiondomain.ErrCustomerNotFound),
		errors.Is(err, sessiondomain.ErrDeviceNotFound),
		errors.Is(err, notificationdomain.ErrNotFound),
		errors.Is(err, notificationdomain.ErrTemplateNotFound),
		errors.Is(err, sysconfigdomain.ErrNotFound),
		errors.Is(err, auditdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// Sentinels read invalid_<field>; everything else keeps an empty field
// and relies on the code.
func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	return payload.Type, err.Error()
}
