// Package metrics holds the Prometheus instrumentation for document sessions.
//
// All methods are safe on a nil *Metrics so front ends that do not expose
// /metrics (the terminal UI) can pass nil.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pdfmind"

// Upload and question outcomes used as the "status" label.
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusNotReady  = "not_ready"
	StatusConfig    = "configuration"
	StatusCancelled = "cancelled"
)

// Metrics bundles every collector the application exports.
type Metrics struct {
	UploadsTotal          *prometheus.CounterVec
	QuestionsTotal        *prometheus.CounterVec
	IndexDurationSeconds  prometheus.Histogram
	TimeToFirstFragment   prometheus.Histogram
	AnswerDurationSeconds prometheus.Histogram
	ActiveSessions        prometheus.Gauge
	LiveDocuments         prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid duplicate registration against the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Document uploads by outcome.",
		}, []string{"status"}),
		QuestionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions asked by outcome.",
		}, []string{"status"}),
		IndexDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_duration_seconds",
			Help:      "Time spent parsing, chunking, embedding and indexing an upload.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		TimeToFirstFragment: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "time_to_first_fragment_seconds",
			Help:      "Latency between a question and its first streamed fragment.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		AnswerDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "Total time to stream an answer.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held by the registry.",
		}),
		LiveDocuments: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_documents",
			Help:      "Indexed documents currently held by sessions.",
		}),
	}
}

func (m *Metrics) ObserveUpload(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		m.IndexDurationSeconds.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveQuestion(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.QuestionsTotal.WithLabelValues(status).Inc()
	if d > 0 {
		m.AnswerDurationSeconds.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveFirstFragment(d time.Duration) {
	if m == nil {
		return
	}
	m.TimeToFirstFragment.Observe(d.Seconds())
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

func (m *Metrics) DocumentLoaded() {
	if m != nil {
		m.LiveDocuments.Inc()
	}
}

func (m *Metrics) DocumentReleased() {
	if m != nil {
		m.LiveDocuments.Dec()
	}
}
