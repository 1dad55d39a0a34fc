package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	assessmentsCalculated *prometheus.CounterVec
	gradeFallbackTotal    prometheus.Counter
	resultCacheLookups    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		assessmentsCalculated = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_assessments_calculated_total",
			Help: "Assessments run through the grading engine, by completeness.",
		}, []string{"complete"})

		gradeFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_gap_fallback_total",
			Help: "Scores that matched no configured grade band and received the fallback grade.",
		})

		resultCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "result_cache_lookups_total",
			Help: "Result cache lookups, by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			assessmentsCalculated,
			gradeFallbackTotal,
			resultCacheLookups,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the request latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the error response counter.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AssessmentsCalculated exposes the grading engine throughput counter.
func AssessmentsCalculated() *prometheus.CounterVec {
	RegisterMetrics()
	return assessmentsCalculated
}

// GradeFallbacks exposes the counter of scores that fell into a band gap.
func GradeFallbacks() prometheus.Counter {
	RegisterMetrics()
	return gradeFallbackTotal
}

// CacheLookups exposes the result cache hit/miss counter.
func CacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return resultCacheLookups
}
