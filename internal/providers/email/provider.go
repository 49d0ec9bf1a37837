package email

import "context"

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string, attachments []Attachment) error
}

// Attachment is an inline file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string, attachments []Attachment) error {
	return nil
}
