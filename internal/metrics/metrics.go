// Package metrics exposes Prometheus instrumentation for the decision
// engine's transport layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Decision outcome labels.
const (
	// OutcomeAssigned labels decisions that chose an interceptor.
	OutcomeAssigned = "assigned"
	// OutcomeNoOption labels THREAT decisions with no feasible offering.
	OutcomeNoOption = "no_option"
	// OutcomeBelowThreshold labels decisions gated out by classification.
	OutcomeBelowThreshold = "below_threshold"
)

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skyfence",
			Name:      "decisions_total",
			Help:      "Total intercept decisions, partitioned by threat level and outcome.",
		},
		[]string{"level", "outcome"},
	)

	solveDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "skyfence",
			Name:      "solve_seconds",
			Help:      "Solver latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	catalogOfferings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "skyfence",
			Name:      "catalog_offerings",
			Help:      "Number of (site, interceptor) offerings in the last snapshot.",
		},
	)

	streamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "skyfence",
			Name:      "stream_clients",
			Help:      "Currently connected simulation stream clients.",
		},
	)
)

// Register installs the collectors on the provided registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(decisionsTotal, solveDurationSeconds, catalogOfferings, streamClients)
}

// ObserveDecision records one solve call.
func ObserveDecision(level, outcome string, duration time.Duration) {
	decisionsTotal.WithLabelValues(level, outcome).Inc()
	solveDurationSeconds.Observe(duration.Seconds())
}

// SetCatalogOfferings updates the offering snapshot size gauge.
func SetCatalogOfferings(n int) {
	catalogOfferings.Set(float64(n))
}

// StreamClientConnected tracks a new stream subscriber.
func StreamClientConnected() {
	streamClients.Inc()
}

// StreamClientDisconnected tracks a departed stream subscriber.
func StreamClientDisconnected() {
	streamClients.Dec()
}
