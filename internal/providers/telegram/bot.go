package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type BotProvider struct {
	token   string
	apiBase string
	client  *http.Client
}

func NewBot(token string, apiBase string) *BotProvider {
	return &BotProvider{
		token:   strings.TrimSpace(token),
		apiBase: strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (p *BotProvider) SendMessage(ctx context.Context, chatID string, text string) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return fmt.Errorf("send telegram: empty chat id")
	}

	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("send telegram: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.apiBase, p.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("send telegram: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("send telegram: decode response: %w", err)
	}
	if !out.OK {
		if out.Description == "" {
			out.Description = resp.Status
		}
		return fmt.Errorf("send telegram: %s", out.Description)
	}
	return nil
}
