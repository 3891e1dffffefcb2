package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors exported by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TelemetryRecords prometheus.Counter
	AnalysisRuns     *prometheus.CounterVec
	AnomalyWindows   prometheus.Counter
	TicketsCreated   *prometheus.CounterVec
	DocQARequests    *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TelemetryRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noc_telemetry_records_total",
			Help: "Telemetry records accepted by the normalizer.",
		}),
		AnalysisRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noc_analysis_runs_total",
			Help: "Pattern engine runs by outcome.",
		}, []string{"outcome"}),
		AnomalyWindows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noc_anomaly_windows_total",
			Help: "Anomaly windows detected across all analyses.",
		}),
		TicketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noc_tickets_created_total",
			Help: "Tickets persisted, by creation path.",
		}, []string{"source"}),
		DocQARequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noc_docqa_requests_total",
			Help: "Document question-answering calls by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noc_http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "noc_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
	reg.MustRegister(
		m.TelemetryRecords,
		m.AnalysisRuns,
		m.AnomalyWindows,
		m.TicketsCreated,
		m.DocQARequests,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// RecordRecords counts normalized telemetry records.
func (m *Metrics) RecordRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TelemetryRecords.Add(float64(n))
}

// RecordAnalysis counts one pattern engine run and the windows it found.
func (m *Metrics) RecordAnalysis(outcome string, windows int) {
	if m == nil {
		return
	}
	m.AnalysisRuns.WithLabelValues(outcome).Inc()
	if windows > 0 {
		m.AnomalyWindows.Add(float64(windows))
	}
}

// RecordTicket counts a persisted ticket.
func (m *Metrics) RecordTicket(source string) {
	if m == nil {
		return
	}
	m.TicketsCreated.WithLabelValues(source).Inc()
}

// RecordDocQA counts a document-QA call.
func (m *Metrics) RecordDocQA(outcome string) {
	if m == nil {
		return
	}
	m.DocQARequests.WithLabelValues(outcome).Inc()
}

// RecordRequest records an HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.Observe(duration.Seconds())
}
