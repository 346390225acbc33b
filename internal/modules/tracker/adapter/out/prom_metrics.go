package out

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
)

type PromMetrics struct {
	transitions    *prometheus.CounterVec
	remoteFailures *prometheus.CounterVec
	outboxDepth    prometheus.Gauge
}

// NewPromMetrics registers the tracker collectors on reg.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	factory := promauto.With(reg)
	return &PromMetrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notegenius",
			Subsystem: "tracker",
			Name:      "transitions_total",
			Help:      "Study session state transitions by source phase, target phase and event.",
		}, []string{"from", "to", "event"}),
		remoteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notegenius",
			Subsystem: "tracker",
			Name:      "remote_failures_total",
			Help:      "Failed writes to the session store by operation.",
		}, []string{"op"}),
		outboxDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "notegenius",
			Subsystem: "tracker",
			Name:      "outbox_depth",
			Help:      "Remote writes waiting for a retry.",
		}),
	}
}

var _ trackerout.Metrics = (*PromMetrics)(nil)

func (m *PromMetrics) Transition(from, to domain.Phase, event domain.Event) {
	m.transitions.WithLabelValues(from.String(), to.String(), event.String()).Inc()
}

func (m *PromMetrics) RemoteFailure(op string) {
	m.remoteFailures.WithLabelValues(op).Inc()
}

func (m *PromMetrics) OutboxDepth(n int) {
	m.outboxDepth.Set(float64(n))
}
