package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejected *prometheus.CounterVec
	Errors   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_ratelimit_rejected_total",
			Help: "Total number of requests rejected by the rate limiter",
		}, []string{"class"}),
		Errors: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_ratelimit_errors_total",
			Help: "Total number of rate limit checks that failed and were let through",
		}),
	}
}

func (m *Metrics) IncrementRejected(class string) {
	m.Rejected.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementErrors() {
	m.Errors.Inc()
}
