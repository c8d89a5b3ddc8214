// Package api provides the HTTP API for CityAir.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cityair/cityair/internal/api/handler"
	"github.com/cityair/cityair/internal/api/middleware"
	"github.com/cityair/cityair/internal/city"
	"github.com/cityair/cityair/internal/pollution"
	"github.com/cityair/cityair/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version          string
	BuildTime        string
	Logger           zerolog.Logger
	ServiceName      string
	Metrics          *middleware.Metrics
	CityService      *city.Service
	PollutionService *pollution.Service
	DB               handler.Pinger
	ProviderRegistry *resilience.Registry

	// PlotDir is served under /api/plots/ when non-empty.
	PlotDir string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "cityair-api"
	}

	registry := cfg.ProviderRegistry
	if registry == nil {
		registry = resilience.GlobalRegistry
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.ContentTypeJSON)      // JSON content type
	r.Use(middleware.RequireJSON)          // Reject non-JSON request bodies

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB, registry)
	cityHandler := handler.NewCityHandler(cfg.CityService, cfg.Logger)
	pollutionHandler := handler.NewPollutionHandler(cfg.PollutionService, cfg.Logger)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 10 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/api", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Pollution endpoints - imports call external providers, so they get
		// the strict limit
		r.Route("/pollution", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", pollutionHandler.Get)
			r.With(expensiveRateLimit).Post("/", pollutionHandler.Import)
			r.With(standardRateLimit).Delete("/", pollutionHandler.Delete)
		})

		// City endpoints
		r.Route("/city", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", cityHandler.List)
			r.Get("/name/", cityHandler.SearchByName)
			r.Delete("/{cityID}/", cityHandler.Delete)
		})

		// Rendered plot images. The global JSON content-type header would
		// survive http.ServeContent, so drop it and let the file server
		// detect the image type.
		if cfg.PlotDir != "" {
			fs := http.StripPrefix("/api/plots/", http.FileServer(http.Dir(cfg.PlotDir)))
			r.Method(http.MethodGet, "/plots/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.Header().Del("Content-Type")
				fs.ServeHTTP(w, req)
			}))
		}
	})

	return r
}
