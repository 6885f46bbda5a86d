// Package email delivers notification e-mails over SMTP.
package email

import "context"

// Sender delivers one notification e-mail.
type Sender interface {
	SendNotificationEmail(ctx context.Context, toEmail, toName, title, body string) error
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendNotificationEmail(ctx context.Context, toEmail, toName, title, body string) error {
	return nil
}

var (
	_ Sender = NoopSender{}
	_ Sender = (*SMTPSender)(nil)
)
