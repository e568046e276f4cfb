package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveEventCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIngestMetrics(reg)

	m.ObserveEvent("payments", "inserted")
	m.ObserveEvent("payments", "inserted")
	m.ObserveEvent("transactions", "duplicate")

	if got := testutil.ToFloat64(m.events.WithLabelValues("payments", "inserted")); got != 2 {
		t.Fatalf("expected 2 inserted payment events, got %v", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("transactions", "duplicate")); got != 1 {
		t.Fatalf("expected 1 duplicate transaction event, got %v", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *IngestMetrics
	m.ObserveEvent("payments", "inserted")
	m.ObserveRejection("payments", "signature")
	m.ObserveRematch(time.Second)
}

func TestEmptyLabelNormalized(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIngestMetrics(reg)
	m.ObserveRejection("", "")
	if got := testutil.ToFloat64(m.rejected.WithLabelValues("unknown", "unknown")); got != 1 {
		t.Fatalf("expected normalized label count 1, got %v", got)
	}
}
