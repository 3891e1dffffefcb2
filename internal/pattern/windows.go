package pattern

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// DetectWindows finds contiguous runs of bins whose residual exceeds
// max(minExcess, mean + sigma×stddev) of all available residuals. Error records
// falling inside a window determine its dominant error code and device.
func DetectWindows(d *domain.DecompositionResult, records []domain.TelemetryRecord, sigma, minExcess float64) []domain.AnomalyWindow {
	if d.Len() == 0 {
		return nil
	}

	available := make([]float64, 0, len(d.Residual))
	for _, r := range d.Residual {
		if r.Valid {
			available = append(available, r.Float)
		}
	}
	if len(available) == 0 {
		return nil
	}
	mean, std := stat.MeanStdDev(available, nil)
	if math.IsNaN(std) {
		std = 0
	}
	threshold := math.Max(minExcess, mean+sigma*std)

	var windows []domain.AnomalyWindow
	for i := 0; i < len(d.Residual); {
		if !exceeds(d.Residual[i], threshold) {
			i++
			continue
		}
		j := i
		for j+1 < len(d.Residual) && exceeds(d.Residual[j+1], threshold) {
			j++
		}
		windows = append(windows, buildWindow(d, records, i, j))
		i = j + 1
	}
	return windows
}

func exceeds(v domain.NullFloat, threshold float64) bool {
	return v.Valid && v.Float > threshold
}

func buildWindow(d *domain.DecompositionResult, records []domain.TelemetryRecord, from, to int) domain.AnomalyWindow {
	w := domain.AnomalyWindow{
		Start: d.Timeline[from],
		End:   d.Timeline[to].Add(time.Hour),
		Bins:  to - from + 1,
	}
	var observed float64
	for i := from; i <= to; i++ {
		observed += d.Observed[i]
		if d.Residual[i].Float > w.PeakExcess {
			w.PeakExcess = d.Residual[i].Float
		}
	}
	w.MeanObserved = observed / float64(w.Bins)

	codes := map[string]int{}
	devices := map[string]int{}
	for _, r := range records {
		if !r.IsError || r.Timestamp.Before(w.Start) || !r.Timestamp.Before(w.End) {
			continue
		}
		w.ErrorCount++
		codes[r.ErrorCode]++
		devices[r.SourceDevice]++
	}
	w.DominantCode = dominant(codes)
	w.DominantDevice = dominant(devices)
	return w
}

// dominant returns the most frequent key; ties go to the smallest key.
func dominant(counts map[string]int) string {
	var best string
	bestN := 0
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}
