package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/noc-incidents/internal/classifier"
	"github.com/spec-kit/noc-incidents/internal/config"
	"github.com/spec-kit/noc-incidents/internal/domain"
	"github.com/spec-kit/noc-incidents/internal/events"
	"github.com/spec-kit/noc-incidents/internal/observability"
	"github.com/spec-kit/noc-incidents/internal/pattern"
	"github.com/spec-kit/noc-incidents/internal/repository"
	"github.com/spec-kit/noc-incidents/internal/telemetry"
)

// Ticket creation paths.
const (
	SourceWindow   = "window"
	SourceReactive = "reactive"
)

const scopeAll = "all"

// IncidentService runs telemetry through normalization, pattern analysis and
// classification, and persists the resulting tickets.
type IncidentService struct {
	store      repository.TicketStore
	engine     *pattern.Engine
	classifier *classifier.Classifier
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.AnalysisConfig
}

// IncidentDependencies bundles collaborators for the incident service.
type IncidentDependencies struct {
	Store      repository.TicketStore
	Engine     *pattern.Engine
	Classifier *classifier.Classifier
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Config     config.AnalysisConfig
}

// IngestOptions selects what a single ingestion does.
type IngestOptions struct {
	PeriodHours int
	// WindowTickets creates one ticket per anomaly window.
	WindowTickets bool
	// ReactiveTickets creates one ticket per error record.
	ReactiveTickets bool
	// PerDevice additionally analyzes each source device on its own.
	PerDevice bool
}

// DeviceAnalysis is the outcome of analyzing one device's records.
type DeviceAnalysis struct {
	Device   string            `json:"device"`
	Analysis *pattern.Analysis `json:"analysis,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// IngestResult summarizes an ingestion.
type IngestResult struct {
	Analysis *pattern.Analysis `json:"analysis"`
	Devices  []DeviceAnalysis  `json:"devices,omitempty"`
	Tickets  []domain.Ticket   `json:"tickets"`
}

// NewIncidentService constructs the service.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := deps.Engine
	if engine == nil {
		engine = pattern.NewEngine(pattern.Config{
			PeriodHours:    deps.Config.PeriodHours,
			ThresholdSigma: deps.Config.ThresholdSigma,
			MinExcess:      deps.Config.MinExcess,
		})
	}
	clf := deps.Classifier
	if clf == nil {
		clf = classifier.New(nil)
	}
	return &IncidentService{
		store:      deps.Store,
		engine:     engine,
		classifier: clf,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        deps.Config,
	}
}

// DefaultOptions reflects the configured analysis behavior.
func (s *IncidentService) DefaultOptions() IngestOptions {
	return IngestOptions{
		PeriodHours:     s.cfg.PeriodHours,
		WindowTickets:   s.cfg.WindowTickets,
		ReactiveTickets: s.cfg.ReactiveTickets,
		PerDevice:       s.cfg.PerDevice,
	}
}

// Ingest normalizes table and analyzes it.
//
// Schema and format errors abort before anything is persisted. When the
// series is too short to decompose, the result still carries the heatmap
// and any reactive tickets, and the error is *pattern.InsufficientDataError.
func (s *IncidentService) Ingest(ctx context.Context, table telemetry.Table, opts IngestOptions) (*IngestResult, error) {
	records, err := telemetry.Normalize(table)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRecords(len(records))

	result := &IngestResult{Tickets: []domain.Ticket{}}

	if opts.ReactiveTickets {
		for _, r := range records {
			if !r.IsError {
				continue
			}
			t, err := s.createTicket(ctx, s.classifier.ClassifyRecord(r), SourceReactive)
			if err != nil {
				return result, err
			}
			result.Tickets = append(result.Tickets, t)
		}
	}

	analysis, err := s.engine.Analyze(records, opts.PeriodHours)
	result.Analysis = analysis
	if err != nil {
		s.recordAnalysis(err, 0)
		return result, err
	}
	s.recordAnalysis(nil, len(analysis.Windows))

	tickets, err := s.handleWindows(ctx, scopeAll, analysis.Windows, opts.WindowTickets)
	result.Tickets = append(result.Tickets, tickets...)
	if err != nil {
		return result, err
	}

	if opts.PerDevice {
		devices, tickets, err := s.analyzeDevices(ctx, records, opts)
		result.Devices = devices
		result.Tickets = append(result.Tickets, tickets...)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *IncidentService) analyzeDevices(ctx context.Context, records []domain.TelemetryRecord, opts IngestOptions) ([]DeviceAnalysis, []domain.Ticket, error) {
	results, err := s.engine.AnalyzeBatches(ctx, pattern.GroupByDevice(records), opts.PeriodHours)
	if err != nil {
		return nil, nil, err
	}

	devices := make([]DeviceAnalysis, 0, len(results))
	var tickets []domain.Ticket
	for _, r := range results {
		da := DeviceAnalysis{Device: r.Key, Analysis: r.Analysis}
		if r.Err != nil {
			s.recordAnalysis(r.Err, 0)
			s.logger.Info("device analysis skipped", zap.String("device", r.Key), zap.Error(r.Err))
			da.Error = r.Err.Error()
			devices = append(devices, da)
			continue
		}
		s.recordAnalysis(nil, len(r.Analysis.Windows))
		devices = append(devices, da)

		created, err := s.handleWindows(ctx, r.Key, r.Analysis.Windows, opts.WindowTickets)
		tickets = append(tickets, created...)
		if err != nil {
			return devices, tickets, err
		}
	}
	return devices, tickets, nil
}

func (s *IncidentService) handleWindows(ctx context.Context, scope string, windows []domain.AnomalyWindow, createTickets bool) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	for _, w := range windows {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventAnomalyDetected,
			Payload: events.AnomalyDetectedPayload{Scope: scope, Window: w},
		})
		if !createTickets {
			continue
		}
		t, err := s.createTicket(ctx, s.classifier.ClassifyWindow(w), SourceWindow)
		if err != nil {
			return tickets, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (s *IncidentService) createTicket(ctx context.Context, d domain.IncidentDescriptor, source string) (domain.Ticket, error) {
	if s.store == nil {
		return domain.Ticket{}, errors.New("ticket store not configured")
	}
	t, err := s.store.Create(ctx, d)
	if err != nil {
		return domain.Ticket{}, err
	}
	s.metrics.RecordTicket(source)
	s.logger.Info("ticket created",
		zap.String("ticket_id", t.TicketID),
		zap.String("issue_type", t.IssueType),
		zap.String("priority", string(t.Priority)),
		zap.String("source", source))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: t.TicketID,
		Payload:  events.TicketCreatedPayload{Source: source, Ticket: t},
	})
	return t, nil
}

func (s *IncidentService) recordAnalysis(err error, windows int) {
	switch {
	case err == nil:
		s.metrics.RecordAnalysis("ok", windows)
	case pattern.IsInsufficientData(err):
		s.metrics.RecordAnalysis("insufficient_data", 0)
	default:
		s.metrics.RecordAnalysis("error", 0)
	}
}

func (s *IncidentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
