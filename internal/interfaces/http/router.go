// Package http assembles the chi route tree, the middleware chain, and the
// server lifecycle of the radar API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/turtacn/TechRadar-Intelligence/internal/config"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TechRadar-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/TechRadar-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies required
// to construct the complete HTTP route tree. Nil optional fields disable the
// corresponding feature.
type RouterConfig struct {
	// Handlers
	RadarHandler *handlers.RadarHandler
	DataHandler  *handlers.DataHandler

	// Infrastructure
	Logger  logging.Logger
	Metrics *prometheus.RadarMetrics

	// MetricsHandler serves GET /metrics (prometheus exposition). Nil
	// removes the route.
	MetricsHandler http.Handler

	// Cross-cutting behavior
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
}

// NewRouter constructs the complete HTTP route tree from the given
// configuration: request ID and real-IP resolution, panic recovery, CORS,
// request logging, prometheus instrumentation, per-client rate limiting,
// and the five API routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	origins := cfg.CORS.Origins
	if len(origins) == 0 {
		origins = config.DefaultCORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.HTTPMetrics(cfg.Metrics))
	}
	if cfg.RateLimit.RPS > 0 {
		r.Use(middleware.NewClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Handler)
	}

	r.Get("/health", cfg.DataHandler.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/data/metadata", cfg.DataHandler.Metadata)
		api.Get("/suggestions", cfg.DataHandler.Suggestions)
		api.Post("/radar", cfg.RadarHandler.Build)
	})

	return r
}
