// File: skywatch/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skywatch/config"
	"skywatch/cron"
	"skywatch/database"
	eventRepoPkg "skywatch/database/repository/event"
	flightRepoPkg "skywatch/database/repository/flightdata"
	monitorRepoPkg "skywatch/database/repository/monitor"
	"skywatch/handlers"
	"skywatch/middleware"
	"skywatch/routes"
	"skywatch/services/frequency"
	"skywatch/services/monitor"
	"skywatch/services/notification"
	"skywatch/services/provider"
	"skywatch/services/risk"
	"skywatch/services/status"
	"skywatch/services/tasks"
	"skywatch/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	database.InitDB()
	utils.InitRedis()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	monitorRepo := monitorRepoPkg.NewMongoMonitorRepo()
	flightRepo := flightRepoPkg.NewMongoFlightDataRepo()
	eventRepo := eventRepoPkg.NewMongoEventRepo()

	// status providers, ordered by priority with per-provider exclusion on
	// construction errors.
	providerTimeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	registry := provider.NewRegistry()

	aero, err := provider.NewAeroDataProvider(cfg.AeroAPIKey, cfg.AeroAPIURL, providerTimeout)
	registry.Register(aero, err)

	backup, err := provider.NewBackupStatusProvider(cfg.BackupAPIKey, cfg.BackupAPIURL, providerTimeout)
	registry.Register(backup, err)

	if cfg.MockProviderEnabled {
		mock, err := provider.NewMockStatusProvider()
		registry.Register(mock, err)
	}

	// services.
	statusService := &status.DefaultStatusService{
		Cache:       status.NewRedisStatusCache(utils.GetCacheClient(), time.Duration(cfg.CacheTTLSeconds)*time.Second),
		Registry:    registry,
		Freshness:   time.Duration(cfg.CacheFreshnessSeconds) * time.Second,
		CallTimeout: providerTimeout,
		MaxRetries:  cfg.ProviderMaxRetries,
	}

	riskScorer := &risk.DefaultRiskScorer{
		FlightRepo:     flightRepo,
		Weather:        &risk.SimulatedWeatherProvider{},
		AlertThreshold: cfg.RiskAlertThreshold,
	}

	routeStatsService := &frequency.DefaultRouteStatsService{
		FlightRepo:          flightRepo,
		CacheClient:         utils.GetCacheClient(),
		CacheTTL:            time.Duration(cfg.RouteStatsTTLHours) * time.Hour,
		HighRiskThreshold:   cfg.RouteHighRiskThreshold,
		MediumRiskThreshold: cfg.RouteMediumRiskThreshold,
	}

	asynqClient := asynq.NewClient(utils.QueueRedisOpt())
	defer asynqClient.Close()
	alertQueue := &tasks.Client{Asynq: asynqClient}

	frequencyController := &frequency.DefaultFrequencyController{
		MonitorRepo:           monitorRepo,
		FlightRepo:            flightRepo,
		EventRepo:             eventRepo,
		Scorer:                riskScorer,
		RouteStats:            routeStatsService,
		Alerts:                alertQueue,
		InterruptionThreshold: time.Duration(cfg.InterruptionThresholdMinutes) * time.Minute,
	}

	var alternativeFinder monitor.AlternativeFinder
	if finder, err := provider.NewAmadeusAlternativeFinder(
		cfg.AmadeusClientID, cfg.AmadeusClientSecret, cfg.AmadeusAPIURL, providerTimeout); err != nil {
		logger.Warn("alternative flight search disabled", zap.Error(err))
	} else {
		alternativeFinder = finder
	}

	scheduler := &monitor.Scheduler{
		MonitorRepo:         monitorRepo,
		FlightRepo:          flightRepo,
		EventRepo:           eventRepo,
		Status:              statusService,
		Frequency:           frequencyController,
		Alternatives:        alternativeFinder,
		Alerts:              alertQueue,
		CheckInterval:       time.Duration(cfg.CheckIntervalSeconds) * time.Second,
		FrequencyInterval:   time.Duration(cfg.FrequencyIntervalSeconds) * time.Second,
		MaxConcurrentChecks: cfg.MaxConcurrentChecks,
		CacheTTLSeconds:     cfg.CacheTTLSeconds,
	}

	// background workers.
	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	notifier := notification.NewAlertNotifier(cfg.NotifyWebhookURL, 10*time.Second)
	cron.InitAlertWorker(eventRepo, notifier)
	go registry.StartHealthLoop(rootCtx, 5*time.Minute)
	utils.StartHealthMonitor(utils.GetCacheClient(), database.MongoClient)

	if err := scheduler.Start(rootCtx); err != nil {
		logger.Sugar().Fatalf("main: failed to start monitoring scheduler: %v", err)
	}

	// handlers and routes.
	monitoringHandler := handlers.NewMonitoringHandler(scheduler, frequencyController, routeStatsService, statusService)
	handlerBundle := &handlers.HandlerBundle{
		Monitoring: monitoringHandler,
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	scheduler.Stop()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
