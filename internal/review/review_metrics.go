package review

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the review subsystem.
type Metrics struct {
	CommitsTotal     *prometheus.CounterVec
	SnapbacksTotal   prometheus.Counter
	DispatchesTotal  *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
}

// NewMetrics registers and returns review metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_review_commits_total",
			Help: "Total committed gestures by direction.",
		}, []string{"direction"}),
		SnapbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_review_snapbacks_total",
			Help: "Total releases under the commit threshold.",
		}),
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_review_dispatches_total",
			Help: "Total dispatched actions by direction and status.",
		}, []string{"direction", "status"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_review_dispatch_duration_seconds",
			Help:    "Duration of dispatched actions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms .. ~5s
		}, []string{"direction"}),
	}

	reg.MustRegister(
		m.CommitsTotal,
		m.SnapbacksTotal,
		m.DispatchesTotal,
		m.DispatchDuration,
	)

	return m
}

// Hooks returns session hooks that increment the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnCommit: func(direction string) {
			m.CommitsTotal.WithLabelValues(direction).Inc()
		},
		OnSnapback: func() {
			m.SnapbacksTotal.Inc()
		},
		OnDispatch: func(direction string, seconds float64, failed bool) {
			status := "success"
			if failed {
				status = "error"
			}
			m.DispatchesTotal.WithLabelValues(direction, status).Inc()
			m.DispatchDuration.WithLabelValues(direction).Observe(seconds)
		},
	}
}
