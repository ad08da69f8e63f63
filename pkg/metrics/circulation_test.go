package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCirculationMetricsExportsTransitionsAndJournal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCirculationMetrics(reg)

	m.ObserveTransition("checkout", true, time.Millisecond)
	m.ObserveTransition("checkout", false, time.Millisecond)
	m.ObserveTransition("checkout", false, time.Millisecond)
	m.SetJournalPending(4)
	m.AddJournalFlushed(3)
	m.IncJournalFailure()
	m.SetOverdueLoans(2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	mf := findMetricFamily(mfs, "shelftrack_transitions_total")
	if mf == nil {
		t.Fatal("transitions metric not found")
	}
	var accepted, rejected float64
	for _, metric := range mf.GetMetric() {
		switch {
		case matchesLabel(metric.GetLabel(), "outcome", OutcomeAccepted):
			accepted = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "outcome", OutcomeRejected):
			rejected = metric.GetCounter().GetValue()
		}
	}
	if accepted != 1 || rejected != 2 {
		t.Fatalf("expected accepted=1 rejected=2, got %f/%f", accepted, rejected)
	}

	if got, err := fetchHistogramSum(mfs, "shelftrack_transition_duration_seconds", "action", "checkout"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got := findMetricFamily(mfs, "shelftrack_journal_pending").GetMetric()[0].GetGauge().GetValue(); got != 4 {
		t.Fatalf("expected journal pending 4, got %f", got)
	}
	if got := findMetricFamily(mfs, "shelftrack_overdue_loans").GetMetric()[0].GetGauge().GetValue(); got != 2 {
		t.Fatalf("expected overdue loans 2, got %f", got)
	}
	if got := findMetricFamily(mfs, "shelftrack_journal_flush_failures_total").GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected one flush failure, got %f", got)
	}
}

func TestCirculationMetricsNilSafe(t *testing.T) {
	var m *CirculationMetrics
	m.ObserveTransition("return", true, time.Second)
	m.SetJournalPending(1)
	m.AddJournalFlushed(1)
	m.IncJournalFailure()
	m.SetOverdueLoans(1)

	unregistered := NewCirculationMetrics(nil)
	unregistered.ObserveTransition("return", false, time.Second)
}

func TestCirculationMetricsLabelsEmptyActionUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCirculationMetrics(reg)
	m.ObserveTransition("", false, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "shelftrack_transitions_total")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected one transition series, got %v", mf)
	}
	if !matchesLabel(mf.GetMetric()[0].GetLabel(), "action", "unknown") {
		t.Fatalf("expected action=unknown, got %v", mf.GetMetric()[0].GetLabel())
	}
	if _, err := fetchHistogramSum(mfs, "shelftrack_transition_duration_seconds", "action", "unknown"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	}
}
