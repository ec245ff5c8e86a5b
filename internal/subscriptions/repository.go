// Package subscriptions handles newsletter sign-ups: validation, persistence,
// confirmation token issuance and the confirmation email.
package subscriptions

import (
	"context"

	"github.com/bissquit/newsletter-garden/internal/domain"
)

// Store persists subscribers together with their confirmation token.
type Store interface {
	// Insert writes sub and a token minted by issuer in a single transaction.
	// Either both rows are committed or neither is.
	// Returns ErrDuplicateEmail, ErrTokenRetriesExhausted or an error wrapping ErrStoreUnavailable.
	Insert(ctx context.Context, sub *domain.Subscriber, issuer *TokenIssuer) (*domain.ConfirmationToken, error)
}

// ConfirmationSender delivers the confirmation message for a new subscriber.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, sub *domain.Subscriber, token *domain.ConfirmationToken) error
}
