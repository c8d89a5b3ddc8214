// Package main provides the entrypoint for the CityAir background worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/cityair/cityair/internal/airquality/openweathermap"
	"github.com/cityair/cityair/internal/city"
	"github.com/cityair/cityair/internal/database"
	"github.com/cityair/cityair/internal/geocoding/opencage"
	"github.com/cityair/cityair/internal/pollution"
	"github.com/cityair/cityair/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "cityair-worker"

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting CityAir worker")

	port := getEnvOrDefault("APP_PORT", "8080")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply database schema")
	}

	// Initialize provider clients and services
	airClient := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey: os.Getenv("OPENWEATHERMAP_API_KEY"),
		Logger: log,
	})
	geocoder := opencage.NewClient(opencage.ClientConfig{
		APIKey: os.Getenv("OPENCAGE_API_KEY"),
		Logger: log,
	})

	cityService := city.NewService(city.ServiceConfig{
		Repository: city.NewPostgresRepository(pool),
		Geocoder:   geocoder,
		Logger:     log,
	})
	pollutionService := pollution.NewService(pollution.ServiceConfig{
		Cities:   cityService,
		Repo:     pollution.NewPostgresRepository(pool),
		Provider: airClient,
		Logger:   log,
	})

	reimportCfg := worker.DefaultReimportConfig()
	if days, err := strconv.Atoi(os.Getenv("REIMPORT_WINDOW_DAYS")); err == nil && days > 0 {
		reimportCfg.WindowDays = days
	}

	reimportJob := worker.NewReimportJob(worker.ReimportJobConfig{
		Config:           reimportCfg,
		Logger:           log,
		CityService:      cityService,
		PollutionService: pollutionService,
	})

	// Health check server for the container runtime
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":%q}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Jobs are triggered by Pub/Sub when a subscription is configured,
	// otherwise on a fixed interval.
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        os.Getenv("PUBSUB_PROJECT_ID"),
			SubscriptionName: subscription,
			ReimportJob:      reimportJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
				cancel()
			}
		}()
	} else {
		interval := 24 * time.Hour
		if d, err := time.ParseDuration(os.Getenv("REIMPORT_INTERVAL")); err == nil && d > 0 {
			interval = d
		}

		go func() {
			log.Info().Dur("interval", interval).Msg("running re-import on a fixed interval")
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					reimportJob.Run(ctx)
				}
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
