package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/noc-incidents/internal/api/http"
	"github.com/spec-kit/noc-incidents/internal/api/http/handlers"
	"github.com/spec-kit/noc-incidents/internal/classifier"
	"github.com/spec-kit/noc-incidents/internal/config"
	"github.com/spec-kit/noc-incidents/internal/docqa"
	"github.com/spec-kit/noc-incidents/internal/events"
	"github.com/spec-kit/noc-incidents/internal/observability"
	"github.com/spec-kit/noc-incidents/internal/pattern"
	"github.com/spec-kit/noc-incidents/internal/persistence"
	"github.com/spec-kit/noc-incidents/internal/repository"
	"github.com/spec-kit/noc-incidents/internal/router"
	"github.com/spec-kit/noc-incidents/internal/service"
	"github.com/spec-kit/noc-incidents/internal/worker"
)

const maxChatSessions = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pingers := map[string]handlers.Pinger{}

	var store repository.TicketStore
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		store = repository.NewPostgresTicketStore(pg.Pool)
		pingers["postgres"] = pg
	default:
		fileStore, err := repository.NewFileTicketStore(cfg.Store.Path, repository.FileTicketStoreOptions{
			RecoverCorrupt: cfg.Store.RecoverCorrupt,
			Logger:         logger,
		})
		if err != nil {
			logger.Fatal("failed to open ticket store", zap.Error(err))
		}
		store = fileStore
		pingers["ticket_store"] = fileStore
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var publisher service.ChannelPublisher
	if redis != nil {
		store = repository.NewCachedTicketStore(store, repository.NewRedisTicketCache(redis.Client, cfg.Redis.CacheTTL()), logger)
		publisher = service.RedisPublisher{Client: redis.Client}
		pingers["redis"] = redis
	}

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, publisher, cfg.Redis.EventsChannel)
	worker.StartNotificationWorker(notificationService)

	clf := classifier.New(nil)
	stopRules, err := worker.StartRulesWatcher(ctx, cfg.Classifier, clf, logger)
	if err != nil {
		logger.Fatal("failed to load classifier rules", zap.Error(err))
	}
	defer stopRules()

	incidentService := service.NewIncidentService(service.IncidentDependencies{
		Store: store,
		Engine: pattern.NewEngine(pattern.Config{
			PeriodHours:    cfg.Analysis.PeriodHours,
			ThresholdSigma: cfg.Analysis.ThresholdSigma,
			MinExcess:      cfg.Analysis.MinExcess,
		}),
		Classifier: clf,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Config:     cfg.Analysis,
	})

	var qa router.DocumentQA
	if cfg.DocQA.Endpoint != "" {
		qa = docqa.NewClient(cfg.DocQA.Endpoint, docqa.Options{
			Timeout:              cfg.DocQA.Timeout(),
			MaxImageBytes:        int64(cfg.DocQA.MaxImageMB) << 20,
			AllowedImageHosts:    cfg.DocQA.ImageHosts,
			AllowPrivateNetworks: cfg.DocQA.AllowPrivateHosts,
		})
	} else {
		logger.Warn("document QA endpoint not configured; document queries will be declined")
	}
	sessions := router.NewSessions(maxChatSessions, func() *router.Router {
		return router.New(store, qa, router.Options{
			QATimeout:       cfg.DocQA.Timeout(),
			DefaultQuestion: cfg.DocQA.DefaultQuestion,
			Logger:          logger,
			Metrics:         metrics,
		})
	})

	app := httptransport.NewApp(httptransport.ServerOptions{
		AppName:        cfg.App.Name,
		BodyLimitMB:    cfg.App.BodyLimitMB,
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Metrics:        metrics,
	}, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pingers),
		Tickets:  handlers.NewTicketsHandler(store),
		Analysis: handlers.NewAnalysisHandler(incidentService),
		Chat:     handlers.NewChatHandler(sessions),
		Gatherer: registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("listening",
		zap.String("addr", cfg.App.Addr()),
		zap.String("store_backend", cfg.Store.Backend),
		zap.Bool("redis", redis != nil),
	)

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
