package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/noc-incidents/internal/observability"
)

// ServerOptions configures the fiber application.
type ServerOptions struct {
	AppName        string
	BodyLimitMB    int
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewApp builds a fiber app with middlewares and routes registered.
func NewApp(opts ServerOptions, routes RouteConfig) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	bodyLimit := fiber.DefaultBodyLimit
	if opts.BodyLimitMB > 0 {
		bodyLimit = opts.BodyLimitMB << 20
	}
	app := fiber.New(fiber.Config{
		AppName:               opts.AppName,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, opts.Logger, opts.Metrics, opts.RequestTimeout)
	RegisterRoutes(app, routes)
	return app
}
