package xendit

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/arusnet/arus/internal/payment/domain"
)

const callbackTokenHeader = "X-Callback-Token"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "xendit"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	token, ok := readString(cfg.Config, "callback_token")
	if !ok {
		return nil, paymentdomain.ErrInvalidConfig
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	return &Adapter{callbackToken: token}, nil
}

type Adapter struct {
	callbackToken string
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	token := strings.TrimSpace(headers.Get(callbackTokenHeader))
	if token == "" {
		return paymentdomain.ErrInvalidSignature
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.callbackToken)) != 1 {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

// invoiceCallback is the flat invoice callback body Xendit posts on
// status changes. payment_id is absent on EXPIRED callbacks.
type invoiceCallback struct {
	ID             string  `json:"id"`
	ExternalID     string  `json:"external_id"`
	Status         string  `json:"status"`
	Amount         int64   `json:"amount"`
	PaidAmount     int64   `json:"paid_amount"`
	PaymentID      string  `json:"payment_id"`
	PaymentMethod  string  `json:"payment_method"`
	PaymentChannel string  `json:"payment_channel"`
	PaidAt         *string `json:"paid_at"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var cb invoiceCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(cb.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	status := strings.ToUpper(strings.TrimSpace(cb.Status))
	switch status {
	case paymentdomain.GatewayStatusPaid,
		paymentdomain.GatewayStatusSettled,
		paymentdomain.GatewayStatusExpired,
		paymentdomain.GatewayStatusFailed:
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	amount := cb.PaidAmount
	if amount <= 0 {
		amount = cb.Amount
	}

	// Callbacks that carry no payment (an invoice expiring untouched)
	// are keyed by the gateway invoice id instead; each invoice reaches
	// a terminal state exactly once.
	paymentID := strings.TrimSpace(cb.PaymentID)
	if paymentID == "" {
		paymentID = strings.TrimSpace(cb.ID)
	}

	method := cb.PaymentMethod
	if strings.TrimSpace(cb.PaymentChannel) != "" && strings.EqualFold(cb.PaymentChannel, "qris") {
		method = cb.PaymentChannel
	}

	return &paymentdomain.PaymentEvent{
		Provider:        "xendit",
		XenditInvoiceID: strings.TrimSpace(cb.ID),
		XenditPaymentID: paymentID,
		ExternalID:      strings.TrimSpace(cb.ExternalID),
		Status:          status,
		PaymentMethod:   method,
		Amount:          amount,
		PaidAt:          parsePaidAt(cb.PaidAt),
		RawPayload:      payload,
	}, nil
}

func parsePaidAt(value *string) time.Time {
	if value == nil {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

func readString(config map[string]any, key string) (string, bool) {
	value, ok := config[key]
	if !ok {
		return "", false
	}
	switch cast := value.(type) {
	case string:
		return cast, true
	default:
		return "", false
	}
}
