// Package observability exposes Prometheus metrics for the query
// pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlsage_queries_total",
			Help: "Total number of pipeline runs by outcome and cache hit type.",
		},
		[]string{"outcome", "cache_hit_type"},
	)
	validationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlsage_validation_rejections_total",
			Help: "Total number of statements rejected by the validator, by reason.",
		},
		[]string{"reason"},
	)
	recoveryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlsage_recovery_attempts_total",
			Help: "Total number of recovery attempts by outcome.",
		},
		[]string{"outcome"},
	)
	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlsage_llm_calls_total",
			Help: "Total number of model generation calls by provider and model.",
		},
		[]string{"provider", "model"},
	)
	queryDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlsage_query_duration_ms",
			Help:    "End-to-end pipeline duration in milliseconds.",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
	)
	cacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sqlsage_cache_entries",
			Help: "Current number of live cache entries by cache kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		validationRejectionsTotal,
		recoveryAttemptsTotal,
		llmCallsTotal,
		queryDurationMs,
		cacheEntries,
	)
}

// ObserveQuery records one completed pipeline run
func ObserveQuery(outcome, cacheHitType string, elapsed time.Duration) {
	queriesTotal.WithLabelValues(outcome, cacheHitType).Inc()
	queryDurationMs.Observe(float64(elapsed.Milliseconds()))
}

// IncrementValidationRejection records one validator rejection
func IncrementValidationRejection(reason string) {
	validationRejectionsTotal.WithLabelValues(reason).Inc()
}

// IncrementRecoveryAttempt records one recovery attempt
func IncrementRecoveryAttempt(outcome string) {
	recoveryAttemptsTotal.WithLabelValues(outcome).Inc()
}

// IncrementLLMCall records one model generation call
func IncrementLLMCall(provider, model string) {
	llmCallsTotal.WithLabelValues(provider, model).Inc()
}

// SetCacheEntries reports the current entry count for a cache
func SetCacheEntries(kind string, count int) {
	if count < 0 {
		count = 0
	}

	cacheEntries.WithLabelValues(kind).Set(float64(count))
}
