package research

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts orchestrator outcomes.
type Metrics struct {
	Sessions      *prometheus.CounterVec // label: tier
	ReportFetches *prometheus.CounterVec // label: outcome
	Backfills     *prometheus.CounterVec // label: source
	Stale         *prometheus.CounterVec // label: response
}

// NewMetrics creates the counters and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic",
			Subsystem: "research",
			Name:      "sessions_started_total",
			Help:      "Research sessions started, by tier.",
		}, []string{"tier"}),
		ReportFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic",
			Subsystem: "research",
			Name:      "report_fetches_total",
			Help:      "Applied report fetches, by outcome.",
		}, []string{"outcome"}),
		Backfills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic",
			Subsystem: "research",
			Name:      "backfills_total",
			Help:      "Report metadata backfills, by source.",
		}, []string{"source"}),
		Stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civic",
			Subsystem: "research",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because the session changed.",
		}, []string{"response"}),
	}
	if reg != nil {
		reg.MustRegister(m.Sessions, m.ReportFetches, m.Backfills, m.Stale)
	}
	return m
}
