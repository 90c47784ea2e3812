package container

import (
	"log/slog"
	"net/http"

	appMiddleware "github.com/FACorreiaa/go-map-poster/app/middleware"
	"github.com/FACorreiaa/go-map-poster/app/observability/metrics"
	"github.com/FACorreiaa/go-map-poster/config"
	"github.com/FACorreiaa/go-map-poster/internal/api/backend"
	"github.com/FACorreiaa/go-map-poster/internal/api/poster"
	"github.com/FACorreiaa/go-map-poster/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	Backend       *backend.ClientImpl
	PosterService *poster.ServiceImpl
	PosterHandler *poster.Handler
}

// NewContainer wires the backend client, session service and handlers.
func NewContainer(cfg *config.Config, m *metrics.AppMetrics, logger *slog.Logger) *Container {
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	service := poster.NewPosterService(client, cfg.Session.TTL, cfg.Session.Cleanup, m, logger)
	return &Container{
		Config:        cfg,
		Logger:        logger,
		Backend:       client,
		PosterService: service,
		PosterHandler: poster.NewPosterHandler(service, logger),
	}
}

// Router builds the application routes. metricsHandler may be nil.
func (c *Container) Router(metricsHandler http.Handler) http.Handler {
	return router.SetupRouter(&router.Config{
		PosterHandler: c.PosterHandler,
		SessionMiddleware: appMiddleware.Session(appMiddleware.SessionOptions{
			Secure: c.Config.Session.CookieSecure,
			MaxAge: c.Config.Session.TTL,
		}),
		MetricsHandler:    metricsHandler,
		AllowedOrigins:    c.Config.CORS.AllowedOrigins,
		GeneratePerMinute: c.Config.RateLimit.GeneratePerMinute,
		RequestTimeout:    c.Config.Server.Timeout,
	})
}

// Close releases all resources held by the container
func (c *Container) Close() {
	c.PosterService.Close()
}
