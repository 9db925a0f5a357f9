package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/mojiscan/internal/api"
	"github.com/timmy/mojiscan/internal/app"
	"github.com/timmy/mojiscan/internal/config"
	"github.com/timmy/mojiscan/internal/logger"
	"github.com/timmy/mojiscan/internal/observe"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.Redact(cfg.Inference.APIKey)

	ctx := context.Background()

	if cfg.Metrics.Enabled {
		shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName: cfg.Metrics.ServiceName,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize telemetry")
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				appLogger.WithError(err).Warn("Telemetry shutdown failed")
			}
		}()
	}

	// Refuses to start without a usable credential
	application, err := app.Build(ctx, cfg, appLogger, observe.DefaultMetrics())
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldProvider: application.Generator.Name(),
		logger.FieldModel:    application.Generator.Model(),
		"cache_enabled":      application.Cache != nil,
		"parallel":           cfg.Consensus.Parallel,
	}).Info("Inference backend configured")

	router := api.SetupRouter(cfg, api.RouterDeps{
		ScanService: application.Scans,
		Cache:       application.Cache,
		Metrics:     application.Metrics,
		Logger:      appLogger,
		Provider:    application.Generator.Name(),
		Model:       application.Generator.Model(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// In-flight scans may be waiting on the backend; give them the call timeout
	shutdownTimeout := 5 * time.Second
	if cfg.Transcribe.CallTimeout > shutdownTimeout {
		shutdownTimeout = cfg.Transcribe.CallTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
