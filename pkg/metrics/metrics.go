// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// StreamFramesTotal tracks frames consumed from the search backend by type.
	StreamFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astralis_stream_frames_total",
			Help: "Total SSE frames consumed from the search backend",
		},
		[]string{"type"},
	)

	// StreamDuration tracks end-to-end duration of one streamed query.
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astralis_stream_duration_seconds",
			Help:    "Duration of one streamed query against the search backend",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"status"},
	)

	// StreamsActive tracks queries currently being streamed.
	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "astralis_streams_active",
			Help: "Number of queries currently streaming",
		},
	)

	// ProfilesFoundTotal tracks professional profiles surfaced mid-stream.
	ProfilesFoundTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "astralis_profiles_found_total",
			Help: "Total professional profiles surfaced by the search backend",
		},
	)

	// TokenRefreshesTotal tracks auth token refresh attempts.
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_refreshes_total",
			Help: "Total auth token refresh attempts",
		},
		[]string{"status"},
	)

	// WaitlistSignupsTotal tracks waitlist signups.
	WaitlistSignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_signups_total",
			Help: "Total waitlist signups",
		},
		[]string{"status"},
	)

	// ReferralCodeRetriesTotal tracks referral code collision retries.
	ReferralCodeRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_referral_code_retries_total",
			Help: "Referral code generation attempts that hit a collision",
		},
	)

	// WelcomeEmailsTotal tracks welcome email deliveries.
	WelcomeEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_welcome_emails_total",
			Help: "Total welcome email delivery attempts",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordStream records metrics for one streamed query.
func RecordStream(status string, duration float64) {
	StreamDuration.WithLabelValues(status).Observe(duration)
}

// RecordFrame records one consumed stream frame.
func RecordFrame(frameType string) {
	StreamFramesTotal.WithLabelValues(frameType).Inc()
}
