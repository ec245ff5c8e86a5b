package subscriptions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bissquit/newsletter-garden/internal/domain"
)

const (
	// tokenBytes gives 256 bits of entropy.
	tokenBytes = 32

	// MaxTokenAttempts bounds regeneration after a token collision.
	MaxTokenAttempts = 3
)

// TokenWriter stores a freshly generated token.
// InsertToken returns ErrTokenConflict when the value already exists.
type TokenWriter interface {
	InsertToken(ctx context.Context, token *domain.ConfirmationToken) error
}

// TokenIssuer generates confirmation tokens and persists them through a TokenWriter.
type TokenIssuer struct {
	random      io.Reader
	now         func() time.Time
	maxAttempts int
}

// NewTokenIssuer creates an issuer backed by crypto/rand.
func NewTokenIssuer() *TokenIssuer {
	return NewTokenIssuerFromReader(rand.Reader)
}

// NewTokenIssuerFromReader creates an issuer that reads token bytes from random.
// Outside tests random must be a cryptographically secure source.
func NewTokenIssuerFromReader(random io.Reader) *TokenIssuer {
	return &TokenIssuer{
		random:      random,
		now:         time.Now,
		maxAttempts: MaxTokenAttempts,
	}
}

// Issue generates a token bound to subscriberID and writes it with w.
// On ErrTokenConflict a new value is generated, up to MaxTokenAttempts times.
func (i *TokenIssuer) Issue(ctx context.Context, w TokenWriter, subscriberID string) (*domain.ConfirmationToken, error) {
	if subscriberID == "" {
		return nil, errors.New("issue token: subscriber id is required")
	}

	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		value, err := i.generate()
		if err != nil {
			return nil, err
		}

		token := &domain.ConfirmationToken{
			Value:        value,
			SubscriberID: subscriberID,
			IssuedAt:     i.now().UTC(),
		}

		err = w.InsertToken(ctx, token)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrTokenConflict) {
			return nil, fmt.Errorf("store token: %w", err)
		}
	}

	return nil, ErrTokenRetriesExhausted
}

func (i *TokenIssuer) generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(i.random, buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
