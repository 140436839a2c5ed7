package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flemzord/finbridge/internal/breaker"
	"github.com/flemzord/finbridge/internal/source"
)

// Metrics exposes dispatch counters to Prometheus. It implements
// dispatch.Observer.
type Metrics struct {
	attempts    *prometheus.CounterVec
	rotations   *prometheus.CounterVec
	dispatches  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	transitions *prometheus.CounterVec
}

// NewMetrics registers the gateway collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finbridge",
			Name:      "attempts_total",
			Help:      "Provider attempts by outcome.",
		}, []string{"provider", "outcome"}),
		rotations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finbridge",
			Name:      "key_rotations_total",
			Help:      "Key rotations forced by rate limits.",
		}, []string{"provider"}),
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finbridge",
			Name:      "dispatches_total",
			Help:      "Dispatches by operation and terminal outcome.",
		}, []string{"operation", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "finbridge",
			Name:      "dispatch_duration_seconds",
			Help:      "Total dispatch duration including failover.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finbridge",
			Name:      "circuit_transitions_total",
			Help:      "Circuit breaker state transitions.",
		}, []string{"provider", "to"}),
	}
}

// ObserveAttempt implements dispatch.Observer.
func (m *Metrics) ObserveAttempt(provider source.Name, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.attempts.WithLabelValues(string(provider), outcome).Inc()
}

// ObserveRotation implements dispatch.Observer.
func (m *Metrics) ObserveRotation(provider source.Name) {
	m.rotations.WithLabelValues(string(provider)).Inc()
}

// ObserveDispatch implements dispatch.Observer.
func (m *Metrics) ObserveDispatch(op source.Operation, outcome string, d time.Duration) {
	m.dispatches.WithLabelValues(string(op), outcome).Inc()
	m.duration.WithLabelValues(string(op)).Observe(d.Seconds())
}

// BreakerTransition records a circuit state change. Wired to each
// breaker's OnTransition callback.
func (m *Metrics) BreakerTransition(provider source.Name) func(from, to breaker.State) {
	return func(_, to breaker.State) {
		m.transitions.WithLabelValues(string(provider), string(to)).Inc()
	}
}
