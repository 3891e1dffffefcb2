package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/spec-kit/noc-incidents/internal/config"
	"github.com/spec-kit/noc-incidents/internal/observability"
	"github.com/spec-kit/noc-incidents/internal/persistence"
	"github.com/spec-kit/noc-incidents/internal/repository"
)

// env is the configuration and ticket store shared by every command.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  repository.TicketStore
	close  func()
}

func loadEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if rootFlags.storePath != "" {
		cfg.Store.Backend = config.StoreBackendFile
		cfg.Store.Path = rootFlags.storePath
	}
	// Commands print to stdout; logs stay quiet unless a file is configured.
	logger := zap.NewNop()
	if cfg.Logger.File != "" {
		if l, err := observability.NewFileLogger(cfg.Logger); err == nil {
			logger = l
		}
	}

	e := &env{cfg: cfg, logger: logger, close: func() { _ = logger.Sync() }}
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		e.store = repository.NewPostgresTicketStore(pg.Pool)
		e.close = func() {
			pg.Close()
			_ = logger.Sync()
		}
	default:
		store, err := repository.NewFileTicketStore(cfg.Store.Path, repository.FileTicketStoreOptions{
			RecoverCorrupt: cfg.Store.RecoverCorrupt,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		e.store = store
	}
	return e, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
