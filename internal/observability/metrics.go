package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	evaluationsTotal      *prometheus.CounterVec
	evaluationScore       *prometheus.HistogramVec
	ruleOutcomesTotal     *prometheus.CounterVec
	xpAwardedTotal        *prometheus.CounterVec
	leaderboardCacheTotal *prometheus.CounterVec
)

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codequest_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codequest_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codequest_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codequest_evaluations_total",
			Help: "Code evaluations performed, by exercise type and outcome.",
		}, []string{"target", "outcome"})

		evaluationScore = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codequest_evaluation_score",
			Help:    "Distribution of evaluation scores.",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}, []string{"target"})

		ruleOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codequest_rule_outcomes_total",
			Help: "Per-rule evaluation outcomes by rule kind.",
		}, []string{"kind", "passed"})

		xpAwardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codequest_xp_awarded_total",
			Help: "Experience points awarded, by source.",
		}, []string{"source"})

		leaderboardCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codequest_leaderboard_cache_total",
			Help: "Leaderboard cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			evaluationsTotal,
			evaluationScore,
			ruleOutcomesTotal,
			xpAwardedTotal,
			leaderboardCacheTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Evaluations exposes the evaluation counter.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// EvaluationScore exposes the score histogram.
func EvaluationScore() *prometheus.HistogramVec {
	RegisterMetrics()
	return evaluationScore
}

// RuleOutcomes exposes the per-rule outcome counter.
func RuleOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return ruleOutcomesTotal
}

// XPAwarded exposes the XP counter.
func XPAwarded() *prometheus.CounterVec {
	RegisterMetrics()
	return xpAwardedTotal
}

// LeaderboardCache exposes the leaderboard cache hit/miss counter.
func LeaderboardCache() *prometheus.CounterVec {
	RegisterMetrics()
	return leaderboardCacheTotal
}
