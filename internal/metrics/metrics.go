// Package metrics exposes Prometheus instrumentation for the orchestrator
// and job pool.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/gauge/histogram the orchestration core
// records. Namespaced "aicore_".
type Metrics struct {
	OrchestratorAttempts *prometheus.CounterVec   // labels: prompt_type, model, outcome
	LLMCallLatencyMs     *prometheus.HistogramVec // labels: model, provider
	CostRecordedUSD      *prometheus.CounterVec   // labels: model
	CacheResult          *prometheus.CounterVec   // labels: result (hit|miss)
	BudgetDenied         *prometheus.CounterVec   // labels: reason
	JobQueueDepth        prometheus.Gauge
	JobsInFlight         prometheus.Gauge
	JobOutcome           *prometheus.CounterVec // labels: outcome (completed|failed|queue_full)
}

// New registers every metric against reg. Pass prometheus.NewRegistry()
// in tests to avoid collisions with the global DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrchestratorAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aicore_orchestrator_attempts_total",
			Help: "Orchestrator LLM call attempts by prompt type, model and outcome.",
		}, []string{"prompt_type", "model", "outcome"}),

		LLMCallLatencyMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aicore_llm_call_latency_ms",
			Help:    "LLM provider call latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"model", "provider"}),

		CostRecordedUSD: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aicore_cost_recorded_usd_total",
			Help: "Cumulative USD cost recorded to the ledger, by model.",
		}, []string{"model"}),

		CacheResult: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aicore_result_cache_total",
			Help: "Orchestrator result cache lookups by outcome.",
		}, []string{"result"}),

		BudgetDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aicore_budget_denied_total",
			Help: "Budget check denials by reason.",
		}, []string{"reason"}),

		JobQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aicore_job_queue_depth",
			Help: "Pending jobs waiting for a worker.",
		}),

		JobsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aicore_jobs_in_flight",
			Help: "Jobs currently being processed by a worker.",
		}),

		JobOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aicore_job_outcome_total",
			Help: "Terminal job outcomes by kind.",
		}, []string{"outcome"}),
	}
}

// RecordJobQueueFull records a Submit call rejected by a full frontier.
func (m *Metrics) RecordJobQueueFull() {
	m.JobOutcome.WithLabelValues("queue_full").Inc()
}

// RecordJobQueueDepth reports the frontier's current depth after a
// successful Submit.
func (m *Metrics) RecordJobQueueDepth(depth int) {
	m.JobQueueDepth.Set(float64(depth))
}

// RecordJobOutcome records a job reaching a terminal state.
func (m *Metrics) RecordJobOutcome(success bool) {
	outcome := "failed"
	if success {
		outcome = "completed"
	}
	m.JobOutcome.WithLabelValues(outcome).Inc()
}

// Noop returns a Metrics instance registered against a private registry,
// for callers (tests, demo cmd) that want instrumentation calls to be
// cheap no-ops without wiring a real Prometheus registry.
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}
