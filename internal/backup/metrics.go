package backup

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors updated by a Coordinator.
type Metrics struct {
	items         *prometheus.CounterVec
	failures      *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	workers       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog_backup",
			Name:      "items_total",
			Help:      "Metacards processed, by operation and result.",
		}, []string{"operation", "result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog_backup",
			Name:      "failures_total",
			Help:      "Per-item failures, by failure category.",
		}, []string{"category"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catalog_backup",
			Name:      "batch_duration_seconds",
			Help:      "Time to process one batch, including waiting for every work unit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "catalog_backup",
			Name:      "workers",
			Help:      "Size of the worker pool.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.items, m.failures, m.batchDuration, m.workers} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeItem(operation string, failed bool) {
	if m == nil {
		return
	}
	result := "success"
	if failed {
		result = "failure"
	}
	m.items.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) observeFailure(category FailureCategory) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(category)).Inc()
}

func (m *Metrics) observeBatch(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) setWorkers(n int) {
	if m == nil {
		return
	}
	m.workers.Set(float64(n))
}
