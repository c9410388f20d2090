package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if err := m.Track("warmup").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := m.Track("warmup").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error passthrough, got %v", err)
	}

	if got := testutil.ToFloat64(m.runs.WithLabelValues("warmup", "success")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("warmup")); got != 1 {
		t.Fatalf("expected one failure, got %v", got)
	}
}

func TestAddWarmed(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddWarmed("employees", 40)
	m.AddWarmed("employees", 2)
	if got := testutil.ToFloat64(m.warmedRows.WithLabelValues("employees")); got != 42 {
		t.Fatalf("expected 42 warmed rows, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastWarm.WithLabelValues("employees")); got <= 0 {
		t.Fatalf("expected last warm timestamp, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.AddWarmed("employees", 1)
	if err := nilMetrics.Track("x").End(nil); err != nil {
		t.Fatalf("nil tracker should pass through, got %v", err)
	}
}
