package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/bissquit/newsletter-garden/internal/domain"
)

const (
	confirmationPath       = "/subscriptions/confirm"
	confirmationTokenParam = "subscription_token"
)

// ConfirmationMailer sends the subscription confirmation email.
// It makes exactly one send attempt per call; retries are left to the caller.
type ConfirmationMailer struct {
	sender   Sender
	renderer *Renderer
	baseURL  *url.URL
}

// NewConfirmationMailer creates a mailer that links to baseURL + /subscriptions/confirm.
func NewConfirmationMailer(sender Sender, renderer *Renderer, baseURL string) (*ConfirmationMailer, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("confirmation base url must be absolute")
	}

	return &ConfirmationMailer{
		sender:   sender,
		renderer: renderer,
		baseURL:  u,
	}, nil
}

// ConfirmationLink builds the click-through URL carrying the token as a query parameter.
func (m *ConfirmationMailer) ConfirmationLink(token string) string {
	link := m.baseURL.JoinPath(confirmationPath)
	link.RawQuery = url.Values{confirmationTokenParam: []string{token}}.Encode()
	return link.String()
}

// SendConfirmation renders and sends the confirmation email to sub.
func (m *ConfirmationMailer) SendConfirmation(ctx context.Context, sub *domain.Subscriber, token *domain.ConfirmationToken) error {
	subject, htmlBody, textBody, err := m.renderer.RenderConfirmation(ConfirmationData{
		Name:             sub.Name,
		ConfirmationLink: m.ConfirmationLink(token.Value),
	})
	if err != nil {
		recordSend(resultRenderFailed)
		return fmt.Errorf("render confirmation: %w", err)
	}

	start := time.Now()
	err = m.sender.Send(ctx, Message{
		To:       sub.Email,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	recordSendDuration(time.Since(start))

	if err != nil {
		recordSend(sendResult(err))
		return fmt.Errorf("send confirmation: %w", err)
	}

	recordSend(resultSent)
	return nil
}
