package inviter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts invite outcomes and job results.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	invites    *prometheus.CounterVec
	jobs       *prometheus.CounterVec
	activeJobs prometheus.Gauge
}

// NewMetrics registers the inviter collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		invites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tg_inviter",
			Name:      "member_outcomes_total",
			Help:      "Members handled by scrape jobs, by outcome.",
		}, []string{"outcome"}),
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tg_inviter",
			Name:      "jobs_total",
			Help:      "Finished scrape jobs, by terminal state.",
		}, []string{"state"}),
		activeJobs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tg_inviter",
			Name:      "active_jobs",
			Help:      "Scrape jobs currently running.",
		}),
	}
}

func (m *Metrics) outcome(o Outcome) {
	if m == nil {
		return
	}
	m.invites.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) jobStarted() {
	if m == nil {
		return
	}
	m.activeJobs.Inc()
}

func (m *Metrics) jobFinished(s State) {
	if m == nil {
		return
	}
	m.activeJobs.Dec()
	m.jobs.WithLabelValues(string(s)).Inc()
}
