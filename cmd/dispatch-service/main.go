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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nurpe/waste-dispatch/internal/auth"
	"github.com/nurpe/waste-dispatch/internal/cache"
	"github.com/nurpe/waste-dispatch/internal/classifier"
	"github.com/nurpe/waste-dispatch/internal/config"
	"github.com/nurpe/waste-dispatch/internal/db"
	"github.com/nurpe/waste-dispatch/internal/excel"
	httphandler "github.com/nurpe/waste-dispatch/internal/http"
	"github.com/nurpe/waste-dispatch/internal/http/middleware"
	"github.com/nurpe/waste-dispatch/internal/logger"
	"github.com/nurpe/waste-dispatch/internal/metrics"
	"github.com/nurpe/waste-dispatch/internal/pdf"
	"github.com/nurpe/waste-dispatch/internal/repository"
	"github.com/nurpe/waste-dispatch/internal/service"
	"github.com/nurpe/waste-dispatch/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	var unread service.UnreadCache = cache.Noop{}
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer client.Close()
		unread = cache.NewUnreadCounters(client, cfg.Redis.CacheTTL)
	} else {
		log.Warn().Msg("REDIS_URL not set, unread counters are not cached")
	}

	images, err := storage.NewImageStore(ctx, cfg.MinIO, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init image storage")
	}
	gemini := classifier.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL, cfg.Gemini.Timeout)
	collectors := metrics.New(prometheus.DefaultRegisterer)

	reportRepo := repository.NewReportRepository(database)
	fleetRepo := repository.NewFleetRepository(database)
	dispatchRepo := repository.NewDispatchRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)
	rewardRepo := repository.NewRewardRepository(database)
	productRepo := repository.NewProductRepository(database)
	userRepo := repository.NewUserRepository(database)

	services := httphandler.Services{
		Reports: service.NewReportService(reportRepo, userRepo, images, gemini, unread, collectors, service.ReportServiceConfig{
			ReportPoints:  cfg.Rewards.ReportPoints,
			MaxImageBytes: cfg.Dispatch.MaxImageBytes,
		}, log),
		Dispatches: service.NewDispatchService(dispatchRepo, reportRepo, fleetRepo, userRepo,
			excel.NewGenerator(), pdf.NewGenerator(), unread, collectors, cfg.Rewards.CompletionPoints, log),
		Fleet:         service.NewFleetService(fleetRepo, userRepo, unread, log),
		Notifications: service.NewNotificationService(notificationRepo, userRepo, unread, log),
		Rewards:       service.NewRewardService(rewardRepo, unread, log),
		Products:      service.NewProductService(productRepo, unread, collectors, log),
		Users:         service.NewUserService(userRepo, log),
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(services, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, httphandler.RouterConfig{
		Environment: cfg.Environment,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Metrics:     promhttp.Handler(),
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting dispatch service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
