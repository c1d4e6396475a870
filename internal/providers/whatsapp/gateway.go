package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GatewayProvider speaks the plain POST-a-JSON dialect the common
// Indonesian gateways (wablas, fonnte and friends) share: one endpoint,
// api key in the Authorization header, phone and message in the body.
type GatewayProvider struct {
	url    string
	apiKey string
	client *http.Client
}

func NewGateway(url string, apiKey string) *GatewayProvider {
	return &GatewayProvider{
		url:    strings.TrimSpace(url),
		apiKey: strings.TrimSpace(apiKey),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (p *GatewayProvider) SendMessage(ctx context.Context, phone string, message string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("send whatsapp: empty phone")
	}

	payload, err := json.Marshal(sendRequest{Phone: phone, Message: message})
	if err != nil {
		return fmt.Errorf("send whatsapp: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("send whatsapp: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send whatsapp: gateway returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
