package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry aggregates the Prometheus collectors for the pipeline, the
// Amadeus executor and the LLM provider. A nil *Telemetry is valid and
// records nothing, so wiring it is optional everywhere.
type Telemetry struct {
	pipelineRequests *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	amadeusAttempts  *prometheus.CounterVec
	tokenRefreshes   *prometheus.CounterVec
	llmRequests      *prometheus.CounterVec
}

// New registers the collectors on the given registerer and returns the
// telemetry handle. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		pipelineRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flightdeck",
			Name:      "pipeline_requests_total",
			Help:      "Pipeline runs by final envelope status.",
		}, []string{"status"}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flightdeck",
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end pipeline latency.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		amadeusAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flightdeck",
			Name:      "amadeus_attempts_total",
			Help:      "Amadeus request attempts by strategy label and outcome.",
		}, []string{"strategy", "outcome"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flightdeck",
			Name:      "amadeus_token_refreshes_total",
			Help:      "Amadeus token exchanges by outcome.",
		}, []string{"outcome"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flightdeck",
			Name:      "llm_requests_total",
			Help:      "LLM round-trips by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(t.pipelineRequests, t.pipelineDuration, t.amadeusAttempts, t.tokenRefreshes, t.llmRequests)
	return t
}

// ObservePipeline records one finished pipeline run.
func (t *Telemetry) ObservePipeline(status string, elapsed time.Duration) {
	if t == nil {
		return
	}
	t.pipelineRequests.WithLabelValues(status).Inc()
	t.pipelineDuration.Observe(elapsed.Seconds())
}

// IncAttempt records one Amadeus strategy attempt.
func (t *Telemetry) IncAttempt(strategy, outcome string) {
	if t == nil {
		return
	}
	t.amadeusAttempts.WithLabelValues(strategy, outcome).Inc()
}

// IncTokenRefresh records one token exchange.
func (t *Telemetry) IncTokenRefresh(outcome string) {
	if t == nil {
		return
	}
	t.tokenRefreshes.WithLabelValues(outcome).Inc()
}

// IncLLM records one LLM call.
func (t *Telemetry) IncLLM(operation, outcome string) {
	if t == nil {
		return
	}
	t.llmRequests.WithLabelValues(operation, outcome).Inc()
}
