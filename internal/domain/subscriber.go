package domain

import "time"

// SubscriberStatus is the confirmation state of a subscriber.
type SubscriberStatus string

// Subscriber statuses.
const (
	SubscriberStatusPendingConfirmation SubscriberStatus = "pending_confirmation"
	SubscriberStatusConfirmed           SubscriberStatus = "confirmed"
)

// IsValid reports whether s is a known status.
func (s SubscriberStatus) IsValid() bool {
	switch s {
	case SubscriberStatusPendingConfirmation, SubscriberStatusConfirmed:
		return true
	}
	return false
}

// Subscriber is a person who submitted the subscription form.
type Subscriber struct {
	ID           string
	Email        string
	Name         string
	Status       SubscriberStatus
	SubscribedAt time.Time
}

// ConfirmationToken proves control of the subscriber's email address.
// Tokens are written once and never updated.
type ConfirmationToken struct {
	Value        string
	SubscriberID string
	IssuedAt     time.Time
}
