package telegram

import "context"

// Provider posts one message to a chat. Recipients are telegram chat
// ids, stored as strings because groups are negative numbers.
type Provider interface {
	SendMessage(ctx context.Context, chatID string, text string) error
}

// NoOpProvider stands in when no bot token is configured.
type NoOpProvider struct{}

func (p *NoOpProvider) SendMessage(ctx context.Context, chatID string, text string) error {
	return nil
}
