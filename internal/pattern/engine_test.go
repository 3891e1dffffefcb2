package pattern

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

func TestResampleFillsGaps(t *testing.T) {
	records := []domain.TelemetryRecord{
		{Timestamp: fixtureStart, IsError: true},
		{Timestamp: fixtureStart.Add(30 * time.Minute), IsError: false},
		{Timestamp: fixtureStart.Add(3*time.Hour + 10*time.Minute), IsError: true},
	}

	s := Resample(records)
	assert.Equal(t, fixtureStart, s.Start)
	assert.Equal(t, []float64{0.5, 0, 0, 1}, s.Values)
	assert.Equal(t, []int{2, 0, 0, 1}, s.Counts)
	assert.Len(t, s.Timeline(), 4)
	assert.Equal(t, fixtureStart.Add(3*time.Hour), s.Timeline()[3])
}

func TestResampleEmpty(t *testing.T) {
	s := Resample(nil)
	assert.Empty(t, s.Values)
}

func TestDecomposeComponentsAddUp(t *testing.T) {
	values := make([]float64, 72)
	for i := range values {
		values[i] = 0.3 + 0.01*float64(i) + 0.2*math.Sin(2*math.Pi*float64(i)/24)
	}

	trend, seasonal, residual, err := Decompose(values, 24)
	require.NoError(t, err)
	require.Len(t, trend, 72)
	require.Len(t, seasonal, 72)
	require.Len(t, residual, 72)

	for i := range values {
		edge := i < 12 || i >= 60
		assert.Equal(t, !edge, trend[i].Valid, "trend availability at %d", i)
		assert.Equal(t, !edge, residual[i].Valid, "residual availability at %d", i)
		if edge {
			continue
		}
		sum := trend[i].Float + seasonal[i] + residual[i].Float
		assert.InDelta(t, values[i], sum, 1e-6, "bin %d", i)
	}
}

func TestDecomposeRecoversLinearTrend(t *testing.T) {
	values := make([]float64, 48)
	for i := range values {
		values[i] = 2 + 0.5*float64(i)
	}
	trend, seasonal, _, err := Decompose(values, 24)
	require.NoError(t, err)
	for i := 12; i < 36; i++ {
		assert.InDelta(t, values[i], trend[i].Float, 1e-9)
	}
	for _, s := range seasonal {
		assert.InDelta(t, 0, s, 1e-9)
	}
}

func TestDecomposeOddPeriod(t *testing.T) {
	values := make([]float64, 21)
	for i := range values {
		values[i] = float64(i % 7)
	}
	trend, _, _, err := Decompose(values, 7)
	require.NoError(t, err)
	assert.False(t, trend[2].Valid)
	assert.True(t, trend[3].Valid)
	assert.True(t, trend[17].Valid)
	assert.False(t, trend[18].Valid)
	assert.InDelta(t, 3.0, trend[10].Float, 1e-9)
}

func TestDecomposeInsufficientData(t *testing.T) {
	_, _, _, err := Decompose(make([]float64, 47), 24)
	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 47, insufficient.Bins)
	assert.Equal(t, 48, insufficient.Required)

	_, _, _, err = Decompose(make([]float64, 10), 1)
	require.Error(t, err)
	assert.False(t, IsInsufficientData(err))
}

func TestHeatmapSumsErrors(t *testing.T) {
	records := peakHourRecords(2)
	cells := Heatmap(records)
	require.Len(t, cells, 168)

	total := 0
	for _, c := range cells {
		total += c.ErrorCount
	}
	errorsIn := 0
	for _, r := range records {
		if r.IsError {
			errorsIn++
		}
	}
	assert.Equal(t, errorsIn, total)
}

func TestHeatmapPeakHoursDominate(t *testing.T) {
	cells := Heatmap(peakHourRecords(2))
	grid := map[[2]int]int{}
	for _, c := range cells {
		grid[[2]int{c.DayOfWeek, c.Hour}] = c.ErrorCount
	}

	// Monday and Tuesday are present.
	for _, day := range []int{0, 1} {
		for peak := 9; peak <= 17; peak++ {
			for quiet := 0; quiet <= 6; quiet++ {
				assert.Greater(t, grid[[2]int{day, peak}], grid[[2]int{day, quiet}], "day %d peak %d quiet %d", day, peak, quiet)
			}
		}
	}
	assert.Equal(t, 0, grid[[2]int{2, 10}], "wednesday is absent from input")
}

func TestHeatmapWeekdayIsMondayBased(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 23, 30, 0, 0, time.UTC)
	cells := Heatmap([]domain.TelemetryRecord{{Timestamp: sunday, IsError: true}})
	for _, c := range cells {
		if c.ErrorCount > 0 {
			assert.Equal(t, 6, c.DayOfWeek)
			assert.Equal(t, 23, c.Hour)
		}
	}
}

func TestHeatmapBucketsSameInstantTogether(t *testing.T) {
	utc := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	plusTwo := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("", 2*60*60))
	require.True(t, utc.Equal(plusTwo))

	records := []domain.TelemetryRecord{
		{Timestamp: utc, IsError: true},
		{Timestamp: plusTwo, IsError: true},
	}
	nonZero := 0
	for _, c := range Heatmap(records) {
		if c.ErrorCount > 0 {
			nonZero++
			assert.Equal(t, 0, c.DayOfWeek)
			assert.Equal(t, 10, c.Hour)
			assert.Equal(t, 2, c.ErrorCount)
		}
	}
	assert.Equal(t, 1, nonZero)
	assert.Len(t, Resample(records).Values, 1)
}

func TestAnalyzeTwoDays(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	analysis, err := engine.Analyze(peakHourRecords(2), 0)
	require.NoError(t, err)

	d := analysis.Decomposition
	require.NotNil(t, d)
	assert.Equal(t, 48, d.Len())
	assert.Len(t, d.Trend, 48)
	assert.Len(t, d.Seasonal, 48)
	assert.Len(t, d.Residual, 48)
	assert.Len(t, d.Timeline, 48)
	assert.Equal(t, 24, d.PeriodHours)
	assert.Equal(t, 192, analysis.Records)
	assert.Empty(t, analysis.Windows, "a perfectly periodic series has no anomalies")
}

func TestAnalyzeInsufficientKeepsHeatmap(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	records := peakHourRecords(1)

	analysis, err := engine.Analyze(records, 0)
	require.Error(t, err)
	assert.True(t, IsInsufficientData(err))
	require.NotNil(t, analysis)
	assert.Nil(t, analysis.Decomposition)
	assert.Len(t, analysis.Heatmap, 168)
	assert.Equal(t, analysis.ErrorCount, sumCells(analysis.Heatmap))

	analysis, err = engine.Analyze(records, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, analysis.Decomposition.PeriodHours)
}

func TestAnalyzeDetectsSpikeWindow(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	spikeHour := 50
	analysis, err := engine.Analyze(withSpike(peakHourRecords(4), spikeHour), 0)
	require.NoError(t, err)
	require.NotEmpty(t, analysis.Windows)

	spikeAt := fixtureStart.Add(time.Duration(spikeHour) * time.Hour)
	var found *domain.AnomalyWindow
	for i := range analysis.Windows {
		w := analysis.Windows[i]
		if !spikeAt.Before(w.Start) && spikeAt.Before(w.End) {
			found = &analysis.Windows[i]
		}
	}
	require.NotNil(t, found, "windows: %+v", analysis.Windows)
	assert.Equal(t, "E003", found.DominantCode)
	assert.Equal(t, "router-01", found.DominantDevice)
	assert.GreaterOrEqual(t, found.ErrorCount, 4)
	assert.Greater(t, found.PeakExcess, 0.1)
}

func TestAnalysisJSONMarksUnavailableTrend(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	analysis, err := engine.Analyze(peakHourRecords(2), 0)
	require.NoError(t, err)

	raw, err := json.Marshal(analysis.Decomposition)
	require.NoError(t, err)

	var decoded struct {
		Trend []*float64 `json:"trend"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Trend, 48)
	assert.Nil(t, decoded.Trend[0])
	assert.NotNil(t, decoded.Trend[12])
	assert.Nil(t, decoded.Trend[47])
}

func TestAnalyzeBatchesByDevice(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	records := append(peakHourRecords(2), domain.TelemetryRecord{
		Timestamp:    fixtureStart.Add(time.Hour),
		ErrorCode:    "E005",
		SourceDevice: "auth-01",
		IsError:      true,
	})
	batches := GroupByDevice(records)
	require.Len(t, batches, 5)
	assert.Equal(t, "auth-01", batches[0].Key)

	results, err := engine.AnalyzeBatches(context.Background(), batches, 0)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, "auth-01", results[0].Key)
	assert.True(t, IsInsufficientData(results[0].Err))
	for _, r := range results[1:] {
		assert.NoError(t, r.Err, r.Key)
		assert.Equal(t, 48, r.Analysis.Decomposition.Len())
	}
}

func TestAnalyzeBatchesCancelled(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.AnalyzeBatches(ctx, GroupByDevice(peakHourRecords(2)), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func sumCells(cells []domain.HeatmapCell) int {
	total := 0
	for _, c := range cells {
		total += c.ErrorCount
	}
	return total
}
