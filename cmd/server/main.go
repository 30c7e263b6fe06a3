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

	"github.com/ikkim/cart-recovery-backend/config"
	"github.com/ikkim/cart-recovery-backend/internal/app/controller"
	"github.com/ikkim/cart-recovery-backend/internal/app/repository"
	"github.com/ikkim/cart-recovery-backend/internal/app/service"
	"github.com/ikkim/cart-recovery-backend/internal/db"
	"github.com/ikkim/cart-recovery-backend/internal/middleware"
	"github.com/ikkim/cart-recovery-backend/internal/router"
	"github.com/ikkim/cart-recovery-backend/internal/scheduler"
	"github.com/ikkim/cart-recovery-backend/internal/storage"
	"github.com/ikkim/cart-recovery-backend/internal/websocket"
	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"github.com/ikkim/cart-recovery-backend/pkg/metrics"
	"github.com/ikkim/cart-recovery-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const cleanupLockKey = "cart_recovery:lock:abandoned_cart_cleanup"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logger.Initialize(logger.ConfigForEnvironment(cfg.Server.Environment))

	logger.Info("Starting cart recovery server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if sqlDB, err := db.GetDB().DB(); err == nil {
		registry.MustRegister(collectors.NewDBStatsCollector(sqlDB, cfg.Database.DBName))
	}
	captureMetrics := metrics.NewCaptureMetrics(registry)
	cronMetrics := metrics.NewCronJobMetrics(registry)

	// Live feed
	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	abandonedRepo := repository.NewAbandonedCartRepository(db.GetDB())

	// Optional Redis: cron lock and unviewed badge cache
	var cache service.UnviewedCountCache
	var cleanupLock scheduler.Lock = redis.NewLocalLock()
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
		store := redis.NewStore(redis.GetClient())
		cache = redis.NewUnviewedCountCache(store, redis.DefaultUnviewedTTL)
		lock, err := redis.NewRedisLock(store, cleanupLockKey, cfg.Retention.LockTTL)
		if err != nil {
			logger.Fatal("Failed to create cleanup lock", err)
		}
		cleanupLock = lock
	}

	// Initialize services
	events := service.NewLiveFeedPublisher(hub, abandonedRepo)
	builder := service.NewSnapshotBuilder(cartRepo, productRepo)
	captureService := service.NewCaptureService(db.GetDB(), abandonedRepo, builder,
		service.WithCaptureEvents(events),
		service.WithCaptureCache(cache),
		service.WithCaptureMetrics(captureMetrics),
	)
	cartService := service.NewCartService(cartRepo, productRepo)
	adminService := service.NewAdminCartService(abandonedRepo,
		service.WithAdminCache(cache),
		service.WithAdminEvents(events),
	)

	retentionOpts := []service.RetentionOption{
		service.WithRetentionEvents(events),
		service.WithRetentionCache(cache),
		service.WithRetentionMetrics(captureMetrics),
	}
	if cfg.Retention.ArchiveEnabled() {
		store := storage.NewS3Storage(cfg.S3.Region, cfg.Retention.ArchiveBucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
		retentionOpts = append(retentionOpts, service.WithArchiver(service.NewWorkbookArchiver(store, cfg.Retention.ArchivePrefix)))
		logger.Info("Abandoned cart archive enabled", map[string]interface{}{
			"bucket": cfg.Retention.ArchiveBucket,
			"prefix": cfg.Retention.ArchivePrefix,
		})
	}
	retentionService := service.NewRetentionService(abandonedRepo, retentionOpts...)

	// Initialize controllers
	captureController := controller.NewCaptureController(captureService, cfg.Capture.NonceSecret, cfg.Capture.NonceTTL)
	hookController := controller.NewHookController(captureService)
	cartController := controller.NewCartController(cartService)
	adminCartController := controller.NewAdminCartController(adminService, retentionService, hub, cfg.CORS.AllowedOrigins)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	sessionMiddleware := middleware.NewCartSessionMiddleware(cfg.Capture.SessionCookie, cfg.Capture.SessionMaxAge, cfg.Capture.CookieSecure)

	if cfg.Capture.HookToken == "" {
		logger.Warn("CAPTURE_HOOK_TOKEN is empty; checkout hooks will be rejected", nil)
	}

	// Setup router
	r := router.NewRouter(
		captureController,
		hookController,
		cartController,
		adminCartController,
		authMiddleware,
		sessionMiddleware,
		registry,
		cfg,
	)
	engine := r.Setup()

	// Start retention scheduler
	retentionScheduler := scheduler.NewRetentionScheduler(
		retentionService,
		cleanupLock,
		cronMetrics,
		cfg.Retention.Schedule,
		cfg.Retention.Days,
	)
	if err := retentionScheduler.Start(); err != nil {
		logger.Fatal("Failed to start retention scheduler", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	retentionScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	cancel()

	logger.Info("Server stopped successfully")
}
