package contracts

import "context"

// EmailSender is the outbound mail collaborator.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// SMSSender is the outbound SMS collaborator.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}
