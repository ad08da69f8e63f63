package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// CirculationMetrics records engine transitions and write-behind journal health.
type CirculationMetrics struct {
	transitions   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	journalDepth  prometheus.Gauge
	journalFlush  prometheus.Counter
	journalFailed prometheus.Counter
	overdueLoans  prometheus.Gauge
}

// NewCirculationMetrics registers the engine metrics on the provided registerer.
func NewCirculationMetrics(reg prometheus.Registerer) *CirculationMetrics {
	if reg == nil {
		return &CirculationMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelftrack_transitions_total",
		Help: "Circulation operations by action and outcome.",
	}, []string{"action", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shelftrack_transition_duration_seconds",
		Help:    "Time spent inside a title's critical section.",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
	}, []string{"action"})
	journalDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shelftrack_journal_pending",
		Help: "Changesets waiting to be persisted.",
	})
	journalFlush := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shelftrack_journal_flushed_total",
		Help: "Changesets persisted by the journal writer.",
	})
	journalFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shelftrack_journal_flush_failures_total",
		Help: "Journal flush attempts that failed and were retried.",
	})
	overdueLoans := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shelftrack_overdue_loans",
		Help: "Open loans past their due date at the last sweep.",
	})
	reg.MustRegister(transitions, duration, journalDepth, journalFlush, journalFailed, overdueLoans)
	return &CirculationMetrics{
		transitions:   transitions,
		duration:      duration,
		journalDepth:  journalDepth,
		journalFlush:  journalFlush,
		journalFailed: journalFailed,
		overdueLoans:  overdueLoans,
	}
}

// ObserveTransition records the outcome and critical-section time of one operation.
func (m *CirculationMetrics) ObserveTransition(action string, accepted bool, elapsed time.Duration) {
	if m == nil || m.transitions == nil {
		return
	}
	outcome := OutcomeRejected
	if accepted {
		outcome = OutcomeAccepted
	}
	m.transitions.WithLabelValues(normalizeLabel(action), outcome).Inc()
	m.duration.WithLabelValues(normalizeLabel(action)).Observe(elapsed.Seconds())
}

// SetJournalPending reports the current journal depth.
func (m *CirculationMetrics) SetJournalPending(n int) {
	if m == nil || m.journalDepth == nil {
		return
	}
	m.journalDepth.Set(float64(n))
}

// AddJournalFlushed counts persisted changesets.
func (m *CirculationMetrics) AddJournalFlushed(n int) {
	if m == nil || m.journalFlush == nil {
		return
	}
	m.journalFlush.Add(float64(n))
}

// IncJournalFailure counts a failed flush attempt.
func (m *CirculationMetrics) IncJournalFailure() {
	if m == nil || m.journalFailed == nil {
		return
	}
	m.journalFailed.Inc()
}

// SetOverdueLoans reports the open overdue loan count.
func (m *CirculationMetrics) SetOverdueLoans(n int) {
	if m == nil || m.overdueLoans == nil {
		return
	}
	m.overdueLoans.Set(float64(n))
}
