// Package pattern detects recurring error patterns in telemetry: an hourly
// error-rate series decomposed into trend, seasonal and residual parts, a
// weekday×hour heatmap, and anomaly windows where the error rate rises above
// its seasonal baseline.
//
// All functions are pure over their inputs and safe for concurrent use.
package pattern

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// Config tunes an Engine.
type Config struct {
	PeriodHours    int
	ThresholdSigma float64
	MinExcess      float64
}

// DefaultConfig uses a diurnal period.
func DefaultConfig() Config {
	return Config{PeriodHours: 24, ThresholdSigma: 2.0, MinExcess: 0.1}
}

// Analysis is the result of analyzing one batch of records.
type Analysis struct {
	Records       int                         `json:"records"`
	ErrorCount    int                         `json:"error_count"`
	Decomposition *domain.DecompositionResult `json:"decomposition,omitempty"`
	Heatmap       []domain.HeatmapCell        `json:"heatmap"`
	Windows       []domain.AnomalyWindow      `json:"anomaly_windows"`
}

// Engine runs pattern analysis with a fixed configuration.
type Engine struct {
	cfg Config
}

// NewEngine builds an engine; zero fields fall back to DefaultConfig.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.PeriodHours <= 0 {
		cfg.PeriodHours = def.PeriodHours
	}
	if cfg.ThresholdSigma <= 0 {
		cfg.ThresholdSigma = def.ThresholdSigma
	}
	if cfg.MinExcess <= 0 {
		cfg.MinExcess = def.MinExcess
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Analyze decomposes the hourly error rate and builds the heatmap for records,
// which must be sorted ascending by timestamp. periodHours overrides the
// engine's period when positive.
//
// When the series is too short to decompose, the returned Analysis still
// carries the heatmap and the error is *InsufficientDataError.
func (e *Engine) Analyze(records []domain.TelemetryRecord, periodHours int) (*Analysis, error) {
	period := e.cfg.PeriodHours
	if periodHours > 0 {
		period = periodHours
	}

	analysis := &Analysis{
		Records: len(records),
		Heatmap: Heatmap(records),
	}
	for _, r := range records {
		if r.IsError {
			analysis.ErrorCount++
		}
	}

	series := Resample(records)
	trend, seasonal, residual, err := Decompose(series.Values, period)
	if err != nil {
		return analysis, err
	}
	analysis.Decomposition = &domain.DecompositionResult{
		Start:       series.Start,
		PeriodHours: period,
		Timeline:    series.Timeline(),
		Observed:    series.Values,
		Trend:       trend,
		Seasonal:    seasonal,
		Residual:    residual,
	}
	analysis.Windows = DetectWindows(analysis.Decomposition, records, e.cfg.ThresholdSigma, e.cfg.MinExcess)
	return analysis, nil
}

// Batch is an independent set of records analyzed on its own, such as the
// records of one device.
type Batch struct {
	Key     string
	Records []domain.TelemetryRecord
}

// BatchResult pairs a batch key with its analysis outcome.
type BatchResult struct {
	Key      string
	Analysis *Analysis
	Err      error
}

// AnalyzeBatches analyzes batches in parallel. Per-batch failures such as
// InsufficientDataError are reported in the results; only context
// cancellation aborts the run.
func (e *Engine) AnalyzeBatches(ctx context.Context, batches []Batch, periodHours int) ([]BatchResult, error) {
	results := make([]BatchResult, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, b := range batches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			analysis, err := e.Analyze(b.Records, periodHours)
			results[i] = BatchResult{Key: b.Key, Analysis: analysis, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// GroupByDevice splits sorted records into one batch per source device,
// ordered by device name. Each batch stays sorted.
func GroupByDevice(records []domain.TelemetryRecord) []Batch {
	index := map[string]int{}
	var batches []Batch
	for _, r := range records {
		i, ok := index[r.SourceDevice]
		if !ok {
			i = len(batches)
			index[r.SourceDevice] = i
			batches = append(batches, Batch{Key: r.SourceDevice})
		}
		batches[i].Records = append(batches[i].Records, r)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Key < batches[j].Key })
	return batches
}

// IsInsufficientData reports whether err is an *InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}
