package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workspace module.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ProjectsCreated   prometheus.Counter
	ProjectsDeleted   prometheus.Counter
	TasksCreated      prometheus.Counter
	CascadeDeleted    *prometheus.CounterVec
}

// New registers workspace metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_workspace_operations_total",
			Help: "Workspace service operations by outcome (ok or error code)",
		}, []string{"operation", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskhub_workspace_operation_duration_seconds",
			Help:    "Duration of workspace service operations including the transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		ProjectsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_projects_created_total",
			Help: "Total number of projects created",
		}),
		ProjectsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_projects_deleted_total",
			Help: "Total number of projects deleted",
		}),
		TasksCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_tasks_created_total",
			Help: "Total number of tasks created",
		}),
		CascadeDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_cascade_deleted_rows_total",
			Help: "Dependent rows removed by project or user deletion",
		}, []string{"entity"}),
	}
}

// ObserveOperation records the outcome and duration of one operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementProjectCreated() {
	m.ProjectsCreated.Inc()
}

func (m *Metrics) IncrementProjectDeleted() {
	m.ProjectsDeleted.Inc()
}

func (m *Metrics) IncrementTaskCreated() {
	m.TasksCreated.Inc()
}

// AddCascade records n dependent rows of entity removed by a cascade.
func (m *Metrics) AddCascade(entity string, n int) {
	if n > 0 {
		m.CascadeDeleted.WithLabelValues(entity).Add(float64(n))
	}
}
