package governance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts transitions by outcome. A nil *Metrics records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "governance",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions attempted, by entity kind, edge and outcome.",
		}, []string{"kind", "edge", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "governance",
			Name:      "transition_duration_seconds",
			Help:      "Time spent deciding and persisting a transition.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "edge"}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.duration)
	}
	return m
}

func (m *Metrics) observe(kind EntityKind, edge Edge, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(CodeOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	label := string(edge)
	switch edge {
	case EdgeSubmit, EdgeApprove, EdgeReject, EdgeDeprecate:
	default:
		label = "unknown"
	}
	m.transitions.WithLabelValues(string(kind), label, outcome).Inc()
	m.duration.WithLabelValues(string(kind), label).Observe(elapsed.Seconds())
}
