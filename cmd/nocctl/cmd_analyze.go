package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/noc-incidents/internal/api/dto"
	"github.com/spec-kit/noc-incidents/internal/classifier"
	"github.com/spec-kit/noc-incidents/internal/events"
	"github.com/spec-kit/noc-incidents/internal/pattern"
	"github.com/spec-kit/noc-incidents/internal/service"
	"github.com/spec-kit/noc-incidents/internal/telemetry"
	"github.com/spec-kit/noc-incidents/internal/worker"
)

var analyzeFlags struct {
	file          string
	period        int
	createTickets bool
	reactive      bool
	perDevice     bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a telemetry file and raise tickets for anomalies",
	Long: "Normalize a CSV or JSON telemetry file, decompose its hourly error rate, " +
		"and print the analysis as JSON. Tickets are written to the configured store.",
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.file, "file", "", "telemetry file (.csv or .json)")
	f.IntVar(&analyzeFlags.period, "period", 0, "seasonal period in hours (default from ANALYSIS_PERIOD_HOURS)")
	f.BoolVar(&analyzeFlags.createTickets, "create-tickets", true, "create one ticket per anomaly window (default from ANALYSIS_WINDOW_TICKETS)")
	f.BoolVar(&analyzeFlags.reactive, "reactive", false, "create one ticket per error record (default from ANALYSIS_REACTIVE_TICKETS)")
	f.BoolVar(&analyzeFlags.perDevice, "per-device", false, "also analyze each source device separately (default from ANALYSIS_PER_DEVICE)")
	_ = analyzeCmd.MarkFlagRequired("file")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if analyzeFlags.period != 0 && analyzeFlags.period < 2 {
		return fmt.Errorf("--period must be at least 2, got %d", analyzeFlags.period)
	}

	table, err := telemetry.ReadFile(analyzeFlags.file)
	if err != nil {
		return err
	}

	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	clf := classifier.New(nil)
	rulesCfg := e.cfg.Classifier
	rulesCfg.Watch = false
	if _, err := worker.StartRulesWatcher(ctx, rulesCfg, clf, e.logger); err != nil {
		return fmt.Errorf("load classifier rules: %w", err)
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, e.logger, nil, ""))

	svc := service.NewIncidentService(service.IncidentDependencies{
		Store:      e.store,
		Classifier: clf,
		Dispatcher: dispatcher,
		Logger:     e.logger,
		Config:     e.cfg.Analysis,
	})

	opts := svc.DefaultOptions()
	if analyzeFlags.period > 0 {
		opts.PeriodHours = analyzeFlags.period
	}
	if cmd.Flags().Changed("create-tickets") {
		opts.WindowTickets = analyzeFlags.createTickets
	}
	if cmd.Flags().Changed("reactive") {
		opts.ReactiveTickets = analyzeFlags.reactive
	}
	if cmd.Flags().Changed("per-device") {
		opts.PerDevice = analyzeFlags.perDevice
	}

	result, err := svc.Ingest(ctx, table, opts)
	var insufficient *pattern.InsufficientDataError
	if err != nil && !errors.As(err, &insufficient) {
		return err
	}
	if werr := writeJSON(cmd.OutOrStdout(), dto.NewAnalysisResponse(result)); werr != nil {
		return werr
	}
	return err
}
