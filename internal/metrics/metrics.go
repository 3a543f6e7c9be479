// Package metrics holds the Prometheus collectors for the client core.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes recorded in RefreshTotal.
const (
	RefreshSuccess     = "success"
	RefreshFailure     = "failure"
	RefreshUnavailable = "unavailable"
)

var (
	// RequestsTotal counts backend API requests by method and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapdai_client_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration observes backend API latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrapdai_client_request_duration_seconds",
			Help:    "Backend API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// RefreshTotal counts token refresh attempts by outcome.
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapdai_session_refresh_total",
			Help: "Total number of access token refresh attempts by result",
		},
		[]string{"result"},
	)

	// ResendTotal counts requests resent after a 401.
	ResendTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrapdai_session_resend_total",
			Help: "Total number of requests resent after credential refresh",
		},
	)

	// GeoRequestsTotal counts third-party map API calls.
	GeoRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapdai_geo_requests_total",
			Help: "Total number of geocoding and routing API calls",
		},
		[]string{"api", "result"},
	)
)

// ObserveRequest records one completed backend request.
// A zero status means the transport failed before a response arrived.
func ObserveRequest(method string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	RequestsTotal.WithLabelValues(method, label).Inc()
	RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// StatusOf returns the status code of resp or 0.
func StatusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// WriteTextfile dumps the default registry in text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
