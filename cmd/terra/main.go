package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/terra-erp/terra-erp/internal/app"
	"github.com/terra-erp/terra-erp/internal/costs"
	"github.com/terra-erp/terra-erp/internal/kardex"
	"github.com/terra-erp/terra-erp/internal/masterdata/crops"
	"github.com/terra-erp/terra-erp/internal/masterdata/products"
	"github.com/terra-erp/terra-erp/internal/platform/db"
	"github.com/terra-erp/terra-erp/internal/shared"
	"github.com/terra-erp/terra-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo)
	productsHandler := products.NewHandler(logger, productsService)

	cropsRepo := crops.NewRepository(pool)
	cropsService := crops.NewService(cropsRepo)
	cropsHandler := crops.NewHandler(logger, cropsService)

	balanceCache := kardex.NewBalanceCache(redisClient, cfg.BalanceCacheTTL)
	kardexRepo := kardex.NewRepository(pool)
	kardexService := kardex.NewService(kardexRepo, productsService, auditLogger, balanceCache, logger)
	kardexHandler := kardex.NewHandler(logger, kardexService, idempotencyStore)

	costsRepo := costs.NewRepository(pool)
	costsService := costs.NewService(costsRepo, kardexService, productsService, logger)
	costsHandler := costs.NewHandler(logger, costsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		ProductsHandler: productsHandler,
		CropsHandler:    cropsHandler,
		KardexHandler:   kardexHandler,
		CostsHandler:    costsHandler,
		JobHandler:      jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
