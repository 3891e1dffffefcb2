package pattern

import (
	"time"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// Series is an hourly error-rate series.
type Series struct {
	Start  time.Time
	Values []float64
	Counts []int
}

// Timeline returns the start time of every bin.
func (s Series) Timeline() []time.Time {
	out := make([]time.Time, len(s.Values))
	for i := range out {
		out[i] = s.Start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

// Resample buckets records into hourly bins spanning the first to the last
// timestamp. Each bin holds the mean error indicator of its records; bins
// without records hold 0. Records must be sorted ascending.
func Resample(records []domain.TelemetryRecord) Series {
	if len(records) == 0 {
		return Series{}
	}
	start := records[0].Timestamp.UTC().Truncate(time.Hour)
	end := records[len(records)-1].Timestamp.Truncate(time.Hour)
	n := int(end.Sub(start)/time.Hour) + 1

	errs := make([]int, n)
	counts := make([]int, n)
	for _, r := range records {
		i := int(r.Timestamp.Truncate(time.Hour).Sub(start) / time.Hour)
		counts[i]++
		if r.IsError {
			errs[i]++
		}
	}

	values := make([]float64, n)
	for i := range values {
		if counts[i] > 0 {
			values[i] = float64(errs[i]) / float64(counts[i])
		}
	}
	return Series{Start: start, Values: values, Counts: counts}
}
