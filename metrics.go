package passcracker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of a search. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	tested         prometheus.Counter
	failures       prometheus.Counter
	found          prometheus.Gauge
	queueDepth     prometheus.Gauge
	oracleDuration prometheus.Histogram
	checkpoints    *prometheus.CounterVec
}

// NewMetrics creates the search collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		tested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "passcracker",
			Name:      "candidates_tested_total",
			Help:      "Number of candidates tested by the oracle",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "passcracker",
			Name:      "oracle_failures_total",
			Help:      "Number of oracle calls that returned an error",
		}),
		found: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "passcracker",
			Name:      "password_found",
			Help:      "1 once the password has been found",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "passcracker",
			Name:      "queue_depth",
			Help:      "Candidates waiting in the supplier queue",
		}),
		oracleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "passcracker",
			Name:      "oracle_duration_seconds",
			Help:      "Duration of a single oracle call",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		checkpoints: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passcracker",
			Name:      "checkpoints_total",
			Help:      "Checkpoint writes by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) observeTest(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.tested.Inc()
	m.oracleDuration.Observe(d.Seconds())
	if err != nil {
		m.failures.Inc()
	}
}

func (m *Metrics) observeQueue(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) observeFound() {
	if m == nil {
		return
	}
	m.found.Set(1)
}

func (m *Metrics) observeCheckpoint(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.checkpoints.WithLabelValues(result).Inc()
}
