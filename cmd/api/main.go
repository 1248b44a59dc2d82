package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadcrm/internal/app"
	"leadcrm/internal/config"
	"leadcrm/internal/db"
	"leadcrm/internal/http/handlers"
	"leadcrm/internal/http/middleware"
	"leadcrm/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			log.Fatal().Strs("keys", missing.Keys).Msg("Missing required configuration")
		}
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Setup logger
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Initialize tracing (optional service)
	shutdownTracing, err := telemetry.InitTracing(context.Background(), cfg.Tracing, cfg.Env)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
	} else if cfg.Tracing.Enabled {
		log.Info().Str("endpoint", cfg.Tracing.Endpoint).Float64("sample_ratio", cfg.Tracing.SampleRatio).Msg("Tracing enabled")
	} else {
		log.Warn().Msg("Tracing disabled")
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)

	// Initialize database
	database, err := db.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Run migrations
	if err := db.RunMigrations(database); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize services
	services, err := app.NewServices(cfg, database, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	services.Start(ctx)

	// Setup Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler

	e.Use(echomiddleware.CORS())
	e.Use(middleware.Stack(metrics)...)

	// Health check
	e.GET("/health", handlers.NewHealthHandler(services.UsageSyncService).Check)
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api")
	if err := handlers.SetupRoutes(api, services); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup routes")
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("Server started")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
