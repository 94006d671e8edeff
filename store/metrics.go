package store

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts placement decisions and the out-of-band failure conditions
// the Store cannot return to callers. A nil *Metrics records nothing.
type Metrics struct {
	placements           *prometheus.CounterVec
	migrations           *prometheus.CounterVec
	compensationFailures prometheus.Counter
	inconsistencies      *prometheus.CounterVec
}

// NewMetrics creates the Store metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offload",
			Name:      "placements_total",
			Help:      "Items written by Put, by the backend holding their content",
		}, []string{"backend"}),

		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offload",
			Name:      "migrations_total",
			Help:      "Update transitions executed",
		}, []string{"transition"}),

		compensationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "offload",
			Name:      "compensation_failures_total",
			Help:      "Put rollbacks that failed, leaving a pointer to a missing blob",
		}),

		inconsistencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offload",
			Name:      "inconsistencies_total",
			Help:      "Operations that took effect in DynamoDB but not in S3",
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{m.placements, m.migrations, m.compensationFailures, m.inconsistencies} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) placed(p Placement) {
	if m == nil {
		return
	}
	m.placements.WithLabelValues(p.String()).Inc()
}

func (m *Metrics) migrated(t Transition) {
	if m == nil {
		return
	}
	m.migrations.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) compensationFailed() {
	if m == nil {
		return
	}
	m.compensationFailures.Inc()
}

func (m *Metrics) inconsistent(operation string) {
	if m == nil {
		return
	}
	m.inconsistencies.WithLabelValues(operation).Inc()
}
