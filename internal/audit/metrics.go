package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit pipeline.
type Metrics struct {
	Emitted       prometheus.Counter
	Dropped       prometheus.Counter
	Delivered     prometheus.Counter
	SinkFailures  prometheus.Counter
	BufferedGauge prometheus.Gauge
}

// NewMetrics registers audit metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Emitted: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_audit_events_emitted_total",
			Help: "Total number of audit events accepted into the buffer",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_audit_events_dropped_total",
			Help: "Total number of audit events evicted because the buffer was full",
		}),
		Delivered: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_audit_events_delivered_total",
			Help: "Total number of audit events written to the sink",
		}),
		SinkFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_audit_sink_failures_total",
			Help: "Total number of failed sink writes",
		}),
		BufferedGauge: f.NewGauge(prometheus.GaugeOpts{
			Name: "taskhub_audit_events_buffered",
			Help: "Audit events waiting for delivery",
		}),
	}
}

func (m *Metrics) incEmitted() {
	if m != nil {
		m.Emitted.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) addDelivered(n int) {
	if m != nil {
		m.Delivered.Add(float64(n))
	}
}

func (m *Metrics) incSinkFailures() {
	if m != nil {
		m.SinkFailures.Inc()
	}
}

func (m *Metrics) setBuffered(n int) {
	if m != nil {
		m.BufferedGauge.Set(float64(n))
	}
}
