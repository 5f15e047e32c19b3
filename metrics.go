package graphsnap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Materialization outcomes recorded by Metrics.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics records materialization counts, latency and sizes. A nil *Metrics
// records nothing.
type Metrics struct {
	total    *prometheus.CounterVec
	duration prometheus.Histogram
	nodes    prometheus.Gauge
	edges    prometheus.Gauge
}

// NewMetrics registers the materialization collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		total: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphsnap_materializations_total",
			Help: "Snapshot materializations by outcome",
		}, []string{"outcome"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "graphsnap_materialization_duration_seconds",
			Help:    "Snapshot materialization duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
		nodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "graphsnap_snapshot_nodes",
			Help: "Node count of the last materialized snapshot",
		}),
		edges: f.NewGauge(prometheus.GaugeOpts{
			Name: "graphsnap_snapshot_edges",
			Help: "Edge count of the last materialized snapshot",
		}),
	}
}

func (m *Metrics) observe(err error, d time.Duration, nodes, edges int) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
	if err != nil {
		m.total.WithLabelValues(outcomeError).Inc()
		return
	}
	m.total.WithLabelValues(outcomeOK).Inc()
	m.nodes.Set(float64(nodes))
	m.edges.Set(float64(edges))
}
