// Package metrics exposes prometheus collectors for the trading pipeline.
// Loss of a metric never affects trading correctness; every hook is a
// fire-and-forget counter or histogram update.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	observationsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_observations_forwarded_total",
			Help: "New observations forwarded by source monitors",
		},
		[]string{"source"},
	)
	observationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_observations_dropped_total",
			Help: "Observations shed because the pipeline channel was full",
		},
		[]string{"source"},
	)
	monitorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_monitor_errors_total",
			Help: "Adapter poll failures per source",
		},
		[]string{"source"},
	)
	monitorDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_monitor_degraded_total",
			Help: "Times a source crossed its consecutive-failure threshold",
		},
		[]string{"source"},
	)
	consensusResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_consensus_total",
			Help: "Consensus classifications by resolution kind",
		},
		[]string{"kind"}, // actionable, neutral, low_quorum, low_agreement
	)
	classifierAbstentions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_classifier_abstentions_total",
			Help: "Classifier timeouts and malformed responses",
		},
		[]string{"classifier"},
	)
	intents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_intents_total",
			Help: "Decision engine outcomes",
		},
		[]string{"result"}, // approved, suppressed, risk_rejected
	)
	orders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Order submission outcomes",
		},
		[]string{"status"}, // filled, rejected
	)
	stageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trader_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)

func ObservationForwarded(source string) { observationsForwarded.WithLabelValues(source).Inc() }

func ObservationDropped(source string) { observationsDropped.WithLabelValues(source).Inc() }

func MonitorError(source string) { monitorErrors.WithLabelValues(source).Inc() }

func MonitorDegraded(source string) { monitorDegraded.WithLabelValues(source).Inc() }

func ConsensusResolved(kind string) { consensusResolved.WithLabelValues(kind).Inc() }

func ClassifierAbstained(id string) { classifierAbstentions.WithLabelValues(id).Inc() }

func IntentResult(result string) { intents.WithLabelValues(result).Inc() }

func OrderOutcome(status string) { orders.WithLabelValues(status).Inc() }

func StageLatency(stage string, s float64) { stageLatency.WithLabelValues(stage).Observe(s) }

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
