package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions     prometheus.Gauge
	SessionEvents      *prometheus.CounterVec
	TranscriptEntries  *prometheus.CounterVec
	IgnoredPayloads    prometheus.Counter
	CollaboratorErrors *prometheus.CounterVec
	CheckpointLatency  prometheus.Histogram
	AnalysisLatency    prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live interview sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		TranscriptEntries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_entries_total",
			Help:      "Normalized transcript entries by speaker.",
		}, []string{"speaker"}),
		IgnoredPayloads: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ignored_payloads_total",
			Help:      "Agent payloads discarded by the normalizer.",
		}),
		CollaboratorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Collaborator errors by collaborator and code.",
		}, []string{"collaborator", "code"}),
		CheckpointLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkpoint_latency_ms",
			Help:      "Transcript checkpoint write latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		AnalysisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_latency_ms",
			Help:      "Transcript analysis latency in milliseconds.",
			Buckets:   []float64{500, 1000, 2500, 5000, 10000, 20000, 40000, 60000},
		}),
	}
}

func (m *Metrics) ObserveCheckpointLatency(d time.Duration) {
	m.CheckpointLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveAnalysisLatency(d time.Duration) {
	m.AnalysisLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
