package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-web/internal/client"
	"github.com/kjstillabower/weather-lookup-web/internal/config"
	"github.com/kjstillabower/weather-lookup-web/internal/geocode"
	httphandler "github.com/kjstillabower/weather-lookup-web/internal/http"
	"github.com/kjstillabower/weather-lookup-web/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup-web/internal/observability"
	"github.com/kjstillabower/weather-lookup-web/internal/service"
	"github.com/kjstillabower/weather-lookup-web/internal/views"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger, err := observability.NewLogger("weather-lookup-web")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), cfg.TracingServiceName, cfg.TracingEndpoint)
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}
	if cfg.TracingEndpoint != "" {
		logger.Info("tracing enabled", zap.String("endpoint", cfg.TracingEndpoint))
	}

	if err := views.LoadTemplates(); err != nil {
		logger.Fatal("templates", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClient(
		cfg.WeatherAPIKey,
		cfg.WeatherCurrentURL,
		cfg.WeatherHistoricalURL,
		cfg.WeatherAPITimeout,
	)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	geocoder, err := geocode.New(geocode.Options{
		Backend:   cfg.GeocoderBackend,
		BaseURL:   cfg.GeocoderURL,
		UserAgent: cfg.GeocoderUserAgent,
		APIKey:    cfg.GeocoderAPIKey,
		Timeout:   cfg.GeocoderTimeout,
	})
	if err != nil {
		logger.Fatal("geocoder", zap.Error(err))
	}
	logger.Info("geocoder configured",
		zap.String("backend", cfg.GeocoderBackend),
		zap.String("miss_policy", cfg.GeocoderMissPolicy))

	viewService := service.NewViewService(weatherClient, geocoder, service.Options{
		MissPolicy:  service.MissPolicy(cfg.GeocoderMissPolicy),
		Location:    cfg.DisplayLocation,
		HistoryDays: cfg.HistoryDays,
	})

	if len(cfg.TrackedCities) > 0 {
		observability.SetTrackedCities(cfg.TrackedCities)
	}

	healthConfig := &httphandler.HealthConfig{
		ServiceName:      cfg.TracingServiceName,
		Version:          version,
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
	}
	handler := httphandler.NewHandler(viewService, weatherClient, healthConfig, logger)
	router := httphandler.NewRouter(handler, logger, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("display_timezone", cfg.DisplayLocation.String()),
			zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.BeginShutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := observability.FlushTelemetry(flushCtx, logger, shutdownTracing); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
