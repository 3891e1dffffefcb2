package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/noc-incidents/internal/classifier"
	"github.com/spec-kit/noc-incidents/internal/config"
	"github.com/spec-kit/noc-incidents/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartRulesWatcher loads the classifier rule file, if one is configured, and
// keeps it reloaded when cfg.Watch is set. The returned stop function is
// always safe to call.
func StartRulesWatcher(ctx context.Context, cfg config.ClassifierConfig, c *classifier.Classifier, logger *zap.Logger) (func(), error) {
	noop := func() {}
	if cfg.RulesPath == "" {
		return noop, nil
	}
	if !cfg.Watch {
		rules, err := classifier.LoadRules(cfg.RulesPath)
		if err != nil {
			return noop, err
		}
		c.SetRules(rules)
		logger.Info("classifier rules loaded", zap.String("rules_path", cfg.RulesPath), zap.Int("rules", len(rules.Rules)))
		return noop, nil
	}

	w, err := classifier.NewWatcher(cfg.RulesPath, 500*time.Millisecond, c, logger)
	if err != nil {
		return noop, err
	}
	if err := w.Start(ctx); err != nil {
		return noop, err
	}
	return func() {
		if err := w.Stop(); err != nil {
			logger.Warn("stop rules watcher", zap.Error(err))
		}
	}, nil
}
