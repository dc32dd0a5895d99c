package saga

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts saga steps and runs.
type Metrics struct {
	Steps *prometheus.CounterVec
	Runs  *prometheus.CounterVec
}

// NewMetrics creates the saga counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_saga_steps_total",
				Help: "Saga entity steps by entity and status",
			},
			[]string{"entity", "status"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_saga_runs_total",
				Help: "Saga runs by kind and whether every step succeeded",
			},
			[]string{"kind", "complete"},
		),
	}
	reg.MustRegister(m.Steps, m.Runs)
	return m
}

func (m *Metrics) step(entity string, status Status) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(entity, string(status)).Inc()
}

func (m *Metrics) run(kind string, complete bool) {
	if m == nil {
		return
	}
	label := "false"
	if complete {
		label = "true"
	}
	m.Runs.WithLabelValues(kind, label).Inc()
}
