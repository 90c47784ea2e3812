package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/FACorreiaa/go-map-poster/internal/api/poster"
)

// Config contains dependencies needed for the router setup
type Config struct {
	PosterHandler     *poster.Handler
	SessionMiddleware func(http.Handler) http.Handler
	MetricsHandler    http.Handler
	AllowedOrigins    []string
	// GeneratePerMinute caps generation requests per client IP; 0 disables it.
	GeneratePerMinute int
	// RequestTimeout bounds every route except the synchronous generate call,
	// which waits for the backend as long as the client stays connected.
	// 0 disables it.
	RequestTimeout time.Duration
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go. Timeouts are
// applied here, per route.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	limit := passthrough
	if cfg.GeneratePerMinute > 0 {
		limit = httprate.LimitByIP(cfg.GeneratePerMinute, time.Minute)
	}
	timeout := passthrough
	if cfg.RequestTimeout > 0 {
		timeout = middleware.Timeout(cfg.RequestTimeout)
	}

	h := cfg.PosterHandler

	// --- Form pages ---
	r.Group(func(r chi.Router) {
		r.Use(cfg.SessionMiddleware)
		r.Use(timeout)

		r.Get("/", h.Index)
		r.Get("/download", h.Download)
		r.With(limit).Post("/generate", h.Submit)
		r.With(limit).Post("/print", h.Print)
	})

	// --- JSON API ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(cfg.SessionMiddleware)

		r.With(timeout).Get("/themes", h.Themes)
		r.With(timeout).Get("/state", h.State)
		r.With(timeout).Get("/download", h.DownloadJSON)
		r.With(limit).Post("/generate", h.Generate)
	})

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
