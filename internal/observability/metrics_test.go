package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRecords(96)
	m.RecordRecords(0)
	assert.Equal(t, 96.0, testutil.ToFloat64(m.TelemetryRecords))

	m.RecordAnalysis("ok", 3)
	m.RecordAnalysis("insufficient_data", 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisRuns.WithLabelValues("insufficient_data")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AnomalyWindows))

	m.RecordTicket("window")
	m.RecordTicket("window")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TicketsCreated.WithLabelValues("window")))

	m.RecordDocQA("failure")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocQARequests.WithLabelValues("failure")))

	m.RecordRequest("/tickets", "GET", 200, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/tickets", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRecords(1)
		m.RecordAnalysis("ok", 1)
		m.RecordTicket("reactive")
		m.RecordDocQA("success")
		m.RecordRequest("/", "GET", 200, time.Millisecond)
	})
}
