package commands

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts gpg operations by mode and outcome. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with registerer, if given
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lazygpg",
			Name:      "operations_total",
			Help:      "gpg operations by mode and outcome.",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lazygpg",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of gpg operations, spawn to exit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}

	if registerer != nil {
		registerer.MustRegister(metrics.operations, metrics.duration)
	}
	return metrics
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if kind, ok := ErrorKindOf(err); ok {
		return kind.String()
	}
	return "error"
}

func (m *Metrics) observe(mode gpgMode, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(mode.String(), outcomeOf(err)).Inc()
	m.duration.WithLabelValues(mode.String()).Observe(elapsed.Seconds())
}
