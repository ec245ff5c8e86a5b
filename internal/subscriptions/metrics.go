package subscriptions

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsletter"

// Subscription outcomes.
const (
	outcomeAccepted    = "accepted"
	outcomeInvalid     = "invalid"
	outcomeDuplicate   = "duplicate"
	outcomeStoreFailed = "store_failed"
	outcomeTokenFailed = "token_failed"
)

var subscriptionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "subscriptions",
		Name:      "total",
		Help:      "Subscription requests by outcome",
	},
	[]string{"outcome"},
)

func recordSubscription(outcome string) {
	subscriptionsTotal.WithLabelValues(outcome).Inc()
}

func storeOutcome(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return outcomeDuplicate
	case errors.Is(err, ErrTokenRetriesExhausted):
		return outcomeTokenFailed
	default:
		return outcomeStoreFailed
	}
}
