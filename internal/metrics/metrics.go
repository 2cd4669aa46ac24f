// Package metrics exposes Prometheus instrumentation for a mounted
// filesystem: how many operations of each kind ran, how many failed, how
// long they took, and how much free space remains. A FileSystem created
// without a Collector runs with all of this as no-ops.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the counters/gauges/histogram one mounted filesystem
// reports. Each is labelled by volume so multiple mounts in one process
// don't collide in a shared registry.
type Collector struct {
	opsTotal    *prometheus.CounterVec
	opsFailed   *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
	freeSectors prometheus.Gauge
}

// NewCollector registers a fresh set of metrics for volume against reg. If
// reg is nil, prometheus.NewRegistry() is used so callers that only want
// in-process inspection (e.g. tests) don't need a global registry.
func NewCollector(reg prometheus.Registerer, volume string) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gofs_ops_total",
			Help:        "Number of filesystem operations, by op.",
			ConstLabels: prometheus.Labels{"volume": volume},
		}, []string{"op"}),
		opsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gofs_ops_failed_total",
			Help:        "Number of filesystem operations that returned an error, by op.",
			ConstLabels: prometheus.Labels{"volume": volume},
		}, []string{"op"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "gofs_op_duration_seconds",
			Help:        "Latency of filesystem operations, by op.",
			ConstLabels: prometheus.Labels{"volume": volume},
			Buckets:     prometheus.DefBuckets,
		}, []string{"op"}),
		freeSectors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gofs_free_sectors",
			Help:        "Sectors currently marked free in the free-space map.",
			ConstLabels: prometheus.Labels{"volume": volume},
		}),
	}
	reg.MustRegister(c.opsTotal, c.opsFailed, c.opDuration, c.freeSectors)
	return c
}

// Observe records one completed operation: its name, how long it took, and
// whether it failed.
func (c *Collector) Observe(op string, start time.Time, err error) {
	if c == nil {
		return
	}
	c.opsTotal.WithLabelValues(op).Inc()
	c.opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.opsFailed.WithLabelValues(op).Inc()
	}
}

// SetFreeSectors updates the free-sector gauge.
func (c *Collector) SetFreeSectors(n int) {
	if c == nil {
		return
	}
	c.freeSectors.Set(float64(n))
}
