package oplog

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts dispatcher outcomes per task name.
type Metrics struct {
	tasks *prometheus.CounterVec
}

// Task results.
const (
	resultSubmitted = "submitted"
	resultDropped   = "dropped"
	resultSucceeded = "succeeded"
	resultFailed    = "failed"
)

// NewMetrics creates the dispatcher counters and registers them with reg
// when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authmodule",
			Subsystem: "log_dispatch",
			Name:      "tasks_total",
			Help:      "Fire-and-forget log tasks by task name and result.",
		}, []string{"task", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.tasks)
	}
	return m
}

func (m *Metrics) inc(task, result string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(task, result).Inc()
}
