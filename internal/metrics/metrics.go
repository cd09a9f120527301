// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "call_review"

// Metrics holds every collector the pipeline updates.
type Metrics struct {
	FilesTotal          *prometheus.CounterVec
	FailuresTotal       *prometheus.CounterVec
	ExternalCallSeconds *prometheus.HistogramVec
	FilesAwaiting       prometheus.Gauge
	RecordsSaved        prometheus.Counter
	PublishTotal        *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FilesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Uploaded files by final outcome",
		}, []string{"outcome"}),
		FilesAwaiting: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_awaiting_metadata",
			Help:      "Admitted files waiting for participant names",
		}),
		FailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Per-file failures by error kind",
		}, []string{"kind"}),
		ExternalCallSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_seconds",
			Help:      "Latency of transcription and evaluation calls",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"capability"}),
		RecordsSaved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_saved_total",
			Help:      "Call records persisted to the store",
		}),
		PublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Record events published, by status",
		}, []string{"status"}),
	}
}

// Outcome counts one file reaching a final state.
func (m *Metrics) Outcome(outcome string) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(outcome).Inc()
}

// Awaiting marks one file as waiting for participant names.
func (m *Metrics) Awaiting() {
	if m == nil {
		return
	}
	m.FilesAwaiting.Inc()
}

// Resolved marks one waiting file as no longer waiting.
func (m *Metrics) Resolved() {
	if m == nil {
		return
	}
	m.FilesAwaiting.Dec()
}

// Failure counts one per-file failure.
func (m *Metrics) Failure(kind string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveCall records how long an external call took.
func (m *Metrics) ObserveCall(capability string, since time.Time) {
	if m == nil {
		return
	}
	m.ExternalCallSeconds.WithLabelValues(capability).Observe(time.Since(since).Seconds())
}

func (m *Metrics) Saved() {
	if m == nil {
		return
	}
	m.RecordsSaved.Inc()
}

// Published counts one publish attempt.
func (m *Metrics) Published(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PublishTotal.WithLabelValues(status).Inc()
}
