package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for account operations.
type Metrics struct {
	Registrations prometheus.Counter
	Logins        prometheus.Counter
	FailedLogins  *prometheus.CounterVec
	Logouts       prometheus.Counter
	UsersUpdated  *prometheus.CounterVec
	UsersDeleted  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_users_registered_total",
			Help: "Total number of accounts registered",
		}),
		Logins: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_logins_total",
			Help: "Total number of successful logins",
		}),
		FailedLogins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_logins_failed_total",
			Help: "Total number of rejected logins by reason",
		}, []string{"reason"}),
		Logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_logouts_total",
			Help: "Total number of access tokens revoked by logout",
		}),
		UsersUpdated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_users_updated_total",
			Help: "Total number of account updates by who made them",
		}, []string{"by"}),
		UsersDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_users_deleted_total",
			Help: "Total number of accounts deleted by administrators",
		}),
	}
}

func (m *Metrics) IncrementRegistrations() {
	m.Registrations.Inc()
}

func (m *Metrics) IncrementLogins() {
	m.Logins.Inc()
}

// IncrementFailedLogins records a rejected login. reason is one of
// "credentials" or "inactive".
func (m *Metrics) IncrementFailedLogins(reason string) {
	m.FailedLogins.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementLogouts() {
	m.Logouts.Inc()
}

func (m *Metrics) IncrementUsersDeleted() {
	m.UsersDeleted.Inc()
}

// IncrementUsersUpdated records an account change. by is "self" or "admin".
func (m *Metrics) IncrementUsersUpdated(by string) {
	m.UsersUpdated.WithLabelValues(by).Inc()
}
