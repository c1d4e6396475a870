package whatsapp

import "context"

// Provider sends one message through the HTTP gateway. Recipients are
// phone numbers in whatever format the gateway accepts; we pass them
// through untouched.
type Provider interface {
	SendMessage(ctx context.Context, phone string, message string) error
}

// NoOpProvider stands in when no gateway is configured.
type NoOpProvider struct{}

func (p *NoOpProvider) SendMessage(ctx context.Context, phone string, message string) error {
	return nil
}
