// Package metrics holds the Prometheus collectors of the session monitor.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "intfar"

// Metrics groups the monitor collectors.
type Metrics struct {
	polls            *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	dispatches       *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
	fetchAttempts    *prometheus.CounterVec
	staticRefreshes  *prometheus.CounterVec
	sessionsPolling  *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_polls_total",
			Help:      "Active match polls by outcome.",
		}, []string{"game", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_state_transitions_total",
			Help:      "Guild session state transitions.",
		}, []string{"game", "from", "to"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_dispatches_total",
			Help:      "Finished matches handed to the consumer by status.",
		}, []string{"game", "status"}),
		dispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_dispatch_failures_total",
			Help:      "Consumer failures while handing over a finished match.",
		}, []string{"game"}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_finalize_fetch_attempts_total",
			Help:      "Match detail fetches made while finalizing, by result.",
		}, []string{"game", "result"}),
		staticRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_static_data_refreshes_total",
			Help:      "Provider static data refreshes triggered by unknown entities.",
		}, []string{"game"}),
		sessionsPolling: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_sessions_polling",
			Help:      "Guild sessions with a running poll task.",
		}, []string{"game"}),
	}

	reg.MustRegister(
		m.polls,
		m.transitions,
		m.dispatches,
		m.dispatchFailures,
		m.fetchAttempts,
		m.staticRefreshes,
		m.sessionsPolling,
	)
	return m
}

func (m *Metrics) Poll(game, outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(game, outcome).Inc()
}

func (m *Metrics) Transition(game, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(game, from, to).Inc()
}

func (m *Metrics) Dispatched(game, status string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(game, status).Inc()
}

func (m *Metrics) DispatchFailed(game string) {
	if m == nil {
		return
	}
	m.dispatchFailures.WithLabelValues(game).Inc()
}

func (m *Metrics) FetchAttempt(game string, ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.fetchAttempts.WithLabelValues(game, result).Inc()
}

func (m *Metrics) StaticRefresh(game string) {
	if m == nil {
		return
	}
	m.staticRefreshes.WithLabelValues(game).Inc()
}

func (m *Metrics) SessionPolling(game string, delta float64) {
	if m == nil {
		return
	}
	m.sessionsPolling.WithLabelValues(game).Add(delta)
}
