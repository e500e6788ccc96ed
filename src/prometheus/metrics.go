package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	BookingOperationsCounter prometheus.CounterVec
	RedemptionsCounter       prometheus.CounterVec
	PayoutsCounter           prometheus.Counter
	EmailFailuresCounter     prometheus.Counter
)

// InitMetrics registers the Prometheus collectors. Call once at boot.
func InitMetrics(prefix string) {
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	BookingOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_booking_operations_total",
			Help: "Total number of booking operations",
		},
		[]string{"operation"},
	)

	RedemptionsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_redemptions_total",
			Help: "Total number of redemption attempts",
		},
		[]string{"outcome"},
	)

	PayoutsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_payouts_total",
			Help: "Total number of authorized payouts",
		},
	)

	EmailFailuresCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_email_failures_total",
			Help: "Total number of swallowed email delivery failures",
		},
	)
}

func RecordBookingOperation(operation string) {
	BookingOperationsCounter.WithLabelValues(operation).Inc()
}

func RecordRedemption(outcome string) {
	RedemptionsCounter.WithLabelValues(outcome).Inc()
}
