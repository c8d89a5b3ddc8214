// Package main provides the entrypoint for the CityAir API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/cityair/cityair/internal/airquality/openweathermap"
	"github.com/cityair/cityair/internal/api"
	"github.com/cityair/cityair/internal/api/middleware"
	"github.com/cityair/cityair/internal/city"
	"github.com/cityair/cityair/internal/database"
	"github.com/cityair/cityair/internal/geocoding/opencage"
	"github.com/cityair/cityair/internal/plot"
	"github.com/cityair/cityair/internal/pollution"
	"github.com/cityair/cityair/internal/provider/resilience"
	"github.com/cityair/cityair/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "cityair-api"

	// Load .env for local development; absence is fine.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting CityAir API")

	// Get configuration from environment
	port := getEnvOrDefault("APP_PORT", "8080")
	otlpEndpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	env := getEnvOrDefault("APP_ENV", "development")
	plotDir := getEnvOrDefault("PLOT_DIR", "/tmp/cityair-plots")

	owmAPIKey := os.Getenv("OPENWEATHERMAP_API_KEY")
	if owmAPIKey == "" {
		log.Warn().Msg("OPENWEATHERMAP_API_KEY not set - pollution imports will fail")
	}
	opencageAPIKey := os.Getenv("OPENCAGE_API_KEY")
	if opencageAPIKey == "" {
		log.Warn().Msg("OPENCAGE_API_KEY not set - city resolution will fail")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"
	sampleRatio, _ := strconv.ParseFloat(getEnvOrDefault("OTEL_SAMPLE_RATIO", "1"), 64)

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
		SampleRatio:    sampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply database schema")
	}

	// Initialize provider clients without retries; the circuit breaker and
	// timeout still apply, and failed upstream calls surface to the caller.
	owmClientCfg := resilience.DefaultClientConfig(openweathermap.ProviderName)
	owmClientCfg.MaxRetries = 0
	owmClientCfg.Registry = resilience.GlobalRegistry
	owmHTTPClient := resilience.NewClient(owmClientCfg)

	ocClientCfg := resilience.DefaultClientConfig(opencage.ProviderName)
	ocClientCfg.MaxRetries = 0
	ocClientCfg.Registry = resilience.GlobalRegistry
	ocHTTPClient := resilience.NewClient(ocClientCfg)

	airClient := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     owmAPIKey,
		HTTPClient: owmHTTPClient,
		Logger:     log,
		Metrics:    providerMetrics,
	})
	geocoder := opencage.NewClient(opencage.ClientConfig{
		APIKey:     opencageAPIKey,
		HTTPClient: ocHTTPClient,
		Logger:     log,
		Metrics:    providerMetrics,
	})

	// Initialize repositories and services
	cityService := city.NewService(city.ServiceConfig{
		Repository: city.NewPostgresRepository(pool),
		Geocoder:   geocoder,
		Logger:     log,
	})
	log.Info().Msg("city service initialized")

	renderer := plot.NewFileRenderer(plot.FileRendererConfig{
		Dir:     plotDir,
		URLBase: "/api/plots",
		Logger:  log,
	})

	pollutionService := pollution.NewService(pollution.ServiceConfig{
		Cities:   cityService,
		Repo:     pollution.NewPostgresRepository(pool),
		Provider: airClient,
		Renderer: renderer,
		Logger:   log,
	})
	log.Info().Msg("pollution service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		Logger:           log,
		ServiceName:      serviceName,
		Metrics:          metrics,
		CityService:      cityService,
		PollutionService: pollutionService,
		DB:               pool,
		ProviderRegistry: resilience.GlobalRegistry,
		PlotDir:          plotDir,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
