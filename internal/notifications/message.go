// Package notifications composes and delivers subscriber emails.
package notifications

import "context"

// Message is a rendered email ready for delivery.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a single message to the email provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
