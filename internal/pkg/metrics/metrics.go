package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

var (
	// Pricing metrics
	PriceChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuken_price_changes_total",
			Help: "Price changes applied per intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	PriceAnomaliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shuken_price_anomalies_total",
			Help: "Inactive prices requested active again",
		},
	)

	ReconcilerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuken_reconciler_changes_total",
			Help: "Pending price changes handled by the reconciler per outcome",
		},
		[]string{"outcome"},
	)

	// Billing metrics
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuken_webhook_events_total",
			Help: "Stripe webhook events per type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	// Member auth metrics
	OTPIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shuken_otp_issued_total",
			Help: "Login codes sent to members",
		},
	)

	OTPVerifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuken_otp_verified_total",
			Help: "Login code verifications per outcome",
		},
		[]string{"outcome"},
	)

	// Media metrics
	MediaUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shuken_media_upload_bytes",
			Help:    "Size of uploaded media files",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
		},
	)
)

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeOK
}
