package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"etsy_importer/internal/domain"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etsy_api_requests_total",
			Help: "Total number of requests sent to the Etsy API and image CDN.",
		},
		[]string{"endpoint", "status"},
	)
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etsy_api_request_duration_seconds",
			Help:    "Histogram of Etsy API request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	syncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etsy_sync_runs_total",
			Help: "Sync runs by outcome.",
		},
		[]string{"outcome"},
	)
	syncListingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etsy_sync_listings_total",
			Help: "Listings handled by sync runs, by result.",
		},
		[]string{"result"},
	)
	syncRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "etsy_sync_run_duration_seconds",
			Help:    "Histogram of sync run durations.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(syncRunsTotal)
	prometheus.MustRegister(syncListingsTotal)
	prometheus.MustRegister(syncRunDuration)
}

// RecordRequest records one outgoing request. A zero status code means the
// request never got a response.
func RecordRequest(endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	apiRequestsTotal.WithLabelValues(endpoint, status).Inc()
	apiRequestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}

// ObserveRun records the outcome of a finished sync run.
func ObserveRun(result *domain.SyncResult, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "failed"
	case result != nil && len(result.Failures) > 0:
		outcome = "partial"
	}
	syncRunsTotal.WithLabelValues(outcome).Inc()

	if result == nil {
		return
	}
	syncListingsTotal.WithLabelValues("created").Add(float64(result.Created))
	syncListingsTotal.WithLabelValues("skipped").Add(float64(result.Skipped))
	syncListingsTotal.WithLabelValues("failed").Add(float64(len(result.Failures)))
	syncRunDuration.Observe(result.Duration.Seconds())
}

// RunRejected counts a trigger that found a run already in progress.
func RunRejected() {
	syncRunsTotal.WithLabelValues("busy").Inc()
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode == 0:
		return "error"
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Handler returns the HTTP handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
