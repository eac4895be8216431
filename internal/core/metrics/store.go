package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics instruments the simulated user backend.
type StoreMetrics struct {
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
	size    prometheus.Gauge
}

// NewStoreMetrics registers the collectors on reg; a nil reg leaves them unregistered.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "user_store_operations_total", Help: "Count of record store operations"},
			[]string{"op", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "user_store_simulated_latency_seconds",
				Help:    "Simulated network latency of record store operations",
				Buckets: prometheus.DefBuckets,
			}, []string{"op"},
		),
		size: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "user_store_records", Help: "Number of records held by the store"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.latency, m.size)
	}
	return m
}

// Observe records one finished operation. Safe on a nil receiver.
func (m *StoreMetrics) Observe(op, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(latency.Seconds())
}

func (m *StoreMetrics) SetSize(n int) {
	if m == nil {
		return
	}
	m.size.Set(float64(n))
}
