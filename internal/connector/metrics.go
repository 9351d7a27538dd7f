package connector

import "github.com/prometheus/client_golang/prometheus"

// Batch outcomes reported by the batches_total counter.
const (
	outcomeCompleted = "completed"
	outcomeDiscarded = "discarded"
	outcomeDeferred  = "deferred"
	outcomeSkipped   = "skipped"
	outcomeTransient = "transient"
)

type metrics struct {
	batches *prometheus.CounterVec
	pending prometheus.Gauge
	stalled prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "possync",
			Subsystem: "upload",
			Name:      "batches_total",
			Help:      "Upload batches processed, by outcome.",
		}, []string{"outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "possync",
			Subsystem: "upload",
			Name:      "pending_batches",
			Help:      "Batches waiting in the local upload queue.",
		}),
		stalled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "possync",
			Subsystem: "upload",
			Name:      "stalled_batches_total",
			Help:      "Batches that kept waiting for a missing parent past the alert threshold.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.batches, m.pending, m.stalled)
	}
	return m
}
