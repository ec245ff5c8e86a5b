package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/newsletter-garden/internal/domain"
	"github.com/bissquit/newsletter-garden/internal/pkg/ctxlog"
	"github.com/google/uuid"
)

// SubscribeInput is the raw sign-up submission.
type SubscribeInput struct {
	Name  string
	Email string
}

// Service provides the subscription intake logic.
type Service struct {
	store     Store
	validator *Validator
	issuer    *TokenIssuer
	sender    ConfirmationSender
	now       func() time.Time
	newID     func() string
}

// NewService creates a new subscriptions service.
func NewService(store Store, issuer *TokenIssuer, sender ConfirmationSender) *Service {
	return &Service{
		store:     store,
		validator: NewValidator(),
		issuer:    issuer,
		sender:    sender,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Subscribe validates the input, stores a pending subscriber with its
// confirmation token and then sends the confirmation email.
//
// The store commit happens before the send. A send failure is logged and
// does not fail the call: the subscriber stays pending and is returned.
func (s *Service) Subscribe(ctx context.Context, input SubscribeInput) (*domain.Subscriber, error) {
	candidate, err := s.validator.Validate(input.Name, input.Email)
	if err != nil {
		recordSubscription(outcomeInvalid)
		return nil, err
	}

	sub := &domain.Subscriber{
		ID:           s.newID(),
		Email:        candidate.Email,
		Name:         candidate.Name,
		Status:       domain.SubscriberStatusPendingConfirmation,
		SubscribedAt: s.now().UTC(),
	}

	ctx = ctxlog.With(ctx, "subscriber_id", sub.ID)
	logger := ctxlog.FromContext(ctx)

	token, err := s.store.Insert(ctx, sub, s.issuer)
	if err != nil {
		recordSubscription(storeOutcome(err))
		return nil, fmt.Errorf("store subscriber: %w", err)
	}

	logger.Info("subscriber stored")
	recordSubscription(outcomeAccepted)

	if err := s.sender.SendConfirmation(ctx, sub, token); err != nil {
		logger.Error("failed to send confirmation email",
			"retryable", isRetryable(err),
			"error", err,
		)
		return sub, nil
	}

	logger.Info("confirmation email sent")
	return sub, nil
}

// isRetryable reports whether a send error is marked as transient.
func isRetryable(err error) bool {
	type retryable interface {
		IsRetryable() bool
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}
