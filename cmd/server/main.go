package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/beasroy/shopify-SAAS-sub002/internal/api"
	"github.com/beasroy/shopify-SAAS-sub002/internal/config"
	"github.com/beasroy/shopify-SAAS-sub002/internal/credentials"
	"github.com/beasroy/shopify-SAAS-sub002/internal/googleads"
	"github.com/beasroy/shopify-SAAS-sub002/internal/meta"
	"github.com/beasroy/shopify-SAAS-sub002/internal/notify"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pipeline"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/distlock"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/logger"
	"github.com/beasroy/shopify-SAAS-sub002/internal/refunds"
	pgrepo "github.com/beasroy/shopify-SAAS-sub002/internal/repository/postgres"
	"github.com/beasroy/shopify-SAAS-sub002/internal/shopify"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		logger.Error("loading config", "path", configPath, "error", err.Error())
		os.Exit(1)
	}
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DEBUG)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("opening database", "error", err.Error())
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.Ping(); err != nil {
		logger.Error("pinging database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	var redisClient *redis.Client
	var notifier notify.Publisher = notify.NopPublisher{}
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, notifications disabled", "error", err.Error())
			redisClient = nil
		} else {
			notifier = notify.NewRedisPublisher(redisClient, cfg.Redis.Channel)
		}
	}

	retryDelay := cfg.Pipeline.RetryBaseDelay()
	debugLogs := logger.NewRegistry(cfg.Pipeline.DebugLogDir)
	defer debugLogs.Close()

	shopifyClient := shopify.NewClient(cfg.Shopify, retryDelay)
	orderReader := shopify.NewReader(shopifyClient, cfg.Shopify.PageDelay(), debugLogs)
	metaClient := meta.NewClient(cfg.Meta, retryDelay)
	googleClient := googleads.NewClient(cfg.Google, retryDelay)

	credStore := credentials.NewPostgresStore(db)
	metricsRepo := pgrepo.NewMetricsRepo(db)
	refundRepo := pgrepo.NewRefundRepo(db)
	reconciler := refunds.NewReconciler(refundRepo)

	lockTTL := cfg.Pipeline.LockTTL()
	lockFor := func(brandID string) distlock.Lock {
		return distlock.ForBrand(redisClient, db, brandID, lockTTL)
	}

	pipe := pipeline.New(credStore, orderReader, metaClient, googleClient,
		metricsRepo, reconciler, notifier, lockFor)

	opts := pipeline.Options{
		OrderWindowDays:      cfg.Pipeline.OrderWindowDays,
		BatchWindowDays:      cfg.Pipeline.BatchWindowDays,
		MaxConcurrentWindows: cfg.Pipeline.MaxConcurrentWindows,
	}

	handlers := api.NewHandlers(pipe, opts)
	router := api.SetupRoutes(handlers)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err.Error())
	}
}
