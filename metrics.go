package mutprox

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts rescaling work. A nil *Metrics records nothing.
type Metrics struct {
	batches      prometheus.Counter
	failures     prometheus.Counter
	pairs        *prometheus.CounterVec
	inflations   prometheus.Counter
	batchSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mutprox",
			Name:      "batches_total",
			Help:      "Batches rescaled successfully.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mutprox",
			Name:      "batch_failures_total",
			Help:      "Batches whose task failed.",
		}),
		pairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mutprox",
			Name:      "pairs_total",
			Help:      "Pairs rescaled, by policy.",
		}, []string{"policy"}),
		inflations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mutprox",
			Name:      "covariance_inflations_total",
			Help:      "Pairs whose covariance had to be inflated by the joint Gaussian policy.",
		}),
		batchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mutprox",
			Name:      "batch_duration_seconds",
			Help:      "Time spent rescaling one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.batches, m.failures, m.pairs, m.inflations, m.batchSeconds)
	}
	return m
}

func (m *Metrics) batchDone(policy Policy, pairs int, d time.Duration) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.pairs.WithLabelValues(string(policy)).Add(float64(pairs))
	m.batchSeconds.Observe(d.Seconds())
}

func (m *Metrics) batchFailed() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *Metrics) covarianceInflated() {
	if m == nil {
		return
	}
	m.inflations.Inc()
}
