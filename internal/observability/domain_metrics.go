package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainquery_generations_total",
			Help: "Total number of SQL generation attempts by outcome.",
		},
		[]string{"outcome"},
	)
	generationLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainquery_generation_latency_seconds",
			Help:    "Latency of SQL generation calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainquery_executions_total",
			Help: "Total number of warehouse executions by outcome.",
		},
		[]string{"outcome"},
	)
	executionLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainquery_execution_latency_seconds",
			Help:    "Latency of warehouse query executions.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	executionBytesScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chainquery_execution_bytes_scanned_total",
			Help: "Total bytes scanned by warehouse executions.",
		},
	)
	executionCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chainquery_execution_cache_hits_total",
			Help: "Total warehouse executions answered from the result cache.",
		},
	)
	examplesSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chainquery_examples_saved_total",
			Help: "Total few-shot examples persisted from positive feedback.",
		},
	)
	exampleStoreFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chainquery_example_store_failures_total",
			Help: "Total failures reading or writing the few-shot example store.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		generationsTotal,
		generationLatencySeconds,
		executionsTotal,
		executionLatencySeconds,
		executionBytesScanned,
		executionCacheHitsTotal,
		examplesSavedTotal,
		exampleStoreFailuresTotal,
	)
}

func ObserveGeneration(succeeded bool, elapsed time.Duration) {
	generationsTotal.WithLabelValues(outcomeLabel(succeeded)).Inc()
	generationLatencySeconds.Observe(elapsed.Seconds())
}

func ObserveExecution(succeeded bool, bytesScanned int64, cacheHit bool, elapsed time.Duration) {
	executionsTotal.WithLabelValues(outcomeLabel(succeeded)).Inc()
	executionLatencySeconds.Observe(elapsed.Seconds())
	if bytesScanned > 0 {
		executionBytesScanned.Add(float64(bytesScanned))
	}
	if cacheHit {
		executionCacheHitsTotal.Inc()
	}
}

func IncrementExamplesSaved() {
	examplesSavedTotal.Inc()
}

func IncrementExampleStoreFailures() {
	exampleStoreFailuresTotal.Inc()
}

func outcomeLabel(succeeded bool) string {
	if succeeded {
		return "success"
	}
	return "failure"
}
