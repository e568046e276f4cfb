package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics records webhook ingestion and matching outcomes.
type IngestMetrics struct {
	events    *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	rematches prometheus.Histogram
}

// NewIngestMetrics registers the ingestion metrics on the provided registerer.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	if reg == nil {
		return &IngestMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook events by stream and store outcome.",
	}, []string{"stream", "result"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_rejected_total",
		Help: "Webhook requests rejected before ingestion.",
	}, []string{"stream", "reason"})
	rematches := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rematch_duration_seconds",
		Help:    "Duration of link recomputation runs.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(events, rejected, rematches)
	return &IngestMetrics{
		events:    events,
		rejected:  rejected,
		rematches: rematches,
	}
}

// ObserveEvent counts a stored webhook event outcome (inserted, duplicate, conflict).
func (m *IngestMetrics) ObserveEvent(stream, result string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(stream), normalizeLabel(result)).Inc()
}

// ObserveRejection counts a rejected webhook request.
func (m *IngestMetrics) ObserveRejection(stream, reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(stream), normalizeLabel(reason)).Inc()
}

// ObserveRematch records the duration of a link recomputation.
func (m *IngestMetrics) ObserveRematch(duration time.Duration) {
	if m == nil || m.rematches == nil {
		return
	}
	m.rematches.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
