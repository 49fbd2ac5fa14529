package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Buckets tuned for upstream calls that can take from milliseconds (token)
	// up to tens of seconds (multipart photo uploads on slow links)
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34, 55}

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Upstream users API client metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_client_request_duration_seconds",
			Help:    "Upstream users API request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	UpstreamRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_request_total",
			Help: "Total number of upstream users API requests",
		},
		[]string{"operation", "status"},
	)

	// Session cache metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signup_form_sessions_active",
			Help: "Number of mounted sign-up form sessions",
		},
	)

	SessionLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_form_session_lookups_total",
			Help: "Session cache lookups by result",
		},
		[]string{"result"},
	)

	// Business Metrics
	FormSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_form_submissions_total",
			Help: "Total sign-up submissions by outcome",
		},
		[]string{"status"},
	)

	FieldValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_form_validation_failures_total",
			Help: "Client-side validation failures by field",
		},
		[]string{"field"},
	)

	UsersAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_form_users_added_total",
			Help: "Users created upstream, split by whether the returned user was complete",
		},
		[]string{"complete"},
	)

	BackgroundFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signup_form_background_fetch_failures_total",
			Help: "Failed token/positions fetches at mount",
		},
		[]string{"resource"},
	)

	// Infrastructure Metrics
	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

// RecordInfrastructureMetrics collects runtime metrics until stop is closed
func RecordInfrastructureMetrics(stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)

				GoRoutines.Set(float64(runtime.NumGoroutine()))
				HeapAlloc.Set(float64(m.HeapAlloc))
			}
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
