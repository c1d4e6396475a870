package email

import "context"

// Provider delivers one rendered message to one mailbox. Bodies are
// plain text; the notification templates render text, not HTML.
type Provider interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// NoOpProvider stands in when no SMTP host is configured. Sends
// succeed silently so queued mail drains instead of retrying forever.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to string, subject string, body string) error {
	return nil
}
