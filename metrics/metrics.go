// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventory_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_uploads_total",
			Help: "Stored uploads by kind and source",
		},
		[]string{"kind", "source"}, // source: "multipart" or "url"
	)

	UploadRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_upload_rejections_total",
			Help: "Rejected uploads by kind and reason",
		},
		[]string{"kind", "reason"},
	)

	UploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_upload_bytes_total",
			Help: "Bytes received through multipart uploads",
		},
		[]string{"kind"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"}, // "success", "invalid", "malformed"
	)
)

// RecordAPIRequest records one finished API request. route is the chi route
// pattern, not the raw path, to keep label cardinality bounded.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge up or down.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func RecordUpload(kind, source string, size int64) {
	UploadsTotal.WithLabelValues(kind, source).Inc()
	if size > 0 {
		UploadBytes.WithLabelValues(kind).Add(float64(size))
	}
}

func RecordUploadRejection(kind, reason string) {
	UploadRejections.WithLabelValues(kind, reason).Inc()
}

func RecordLogin(outcome string) {
	LoginAttempts.WithLabelValues(outcome).Inc()
}
