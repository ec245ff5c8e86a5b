package notifications

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsletter"

// Send results.
const (
	resultSent           = "sent"
	resultTransientError = "transient_error"
	resultPermanentError = "permanent_error"
	resultRenderFailed   = "render_failed"
)

var (
	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Confirmation emails processed by result",
		},
		[]string{"result"},
	)

	notificationSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "send_duration_seconds",
			Help:      "Time spent calling the email provider",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

func recordSend(result string) {
	notificationsSent.WithLabelValues(result).Inc()
}

func recordSendDuration(d time.Duration) {
	notificationSendDuration.Observe(d.Seconds())
}

func sendResult(err error) string {
	type retryable interface {
		IsRetryable() bool
	}
	var r retryable
	if errors.As(err, &r) && !r.IsRetryable() {
		return resultPermanentError
	}
	return resultTransientError
}
