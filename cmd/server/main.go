package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/ParcelMatchService/internal/api"
	"github.com/honeynil/ParcelMatchService/internal/audit"
	"github.com/honeynil/ParcelMatchService/internal/config"
	"github.com/honeynil/ParcelMatchService/internal/handler"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/kafka"
	infraobs "github.com/honeynil/ParcelMatchService/internal/infrastructure/observability"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/redis"
	"github.com/honeynil/ParcelMatchService/internal/moderation"
	"github.com/honeynil/ParcelMatchService/internal/observability"
	"github.com/honeynil/ParcelMatchService/internal/pricing"
	"github.com/honeynil/ParcelMatchService/internal/repository"
	"github.com/honeynil/ParcelMatchService/internal/repository/memory"
	"github.com/honeynil/ParcelMatchService/internal/repository/postgres"
	service "github.com/honeynil/ParcelMatchService/internal/services"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Инициализируем логи, метрики, трейсы
	shutdownTracing, err := observability.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Error("tracer shutdown failed", "error", err)
		}
	}()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	moderator := moderation.Default()
	if cfg.ModerationKeywordsFile != "" {
		if moderator, err = moderation.LoadFile(cfg.ModerationKeywordsFile); err != nil {
			return err
		}
	}

	calculator, err := pricing.NewCalculator(cfg.Rates())
	if err != nil {
		return err
	}
	recorder := audit.NewRecorder(store.Audit)

	notifier := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaNotificationsTopic)
	defer notifier.Close()

	market := service.NewMarketplaceService(store, calculator, recorder, notifier)
	chat := service.NewChatService(store.Messages, moderator, recorder)

	// Платёжные события
	payments := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaPaymentsTopic, cfg.KafkaGroupID, market)
	defer payments.Close()
	go payments.Consume(ctx)

	var redisClient redis.RedisClient
	if client, err := redis.NewClient(ctx, cfg.RedisAddr); err != nil {
		slog.Warn("redis unavailable, Idempotency-Key handling disabled", "error", err)
	} else {
		redisClient = client
		defer client.Close()
	}

	router := api.SetupRouter(handler.NewHandler(market, chat), redisClient, cfg.JWTSecret)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = infraobs.ServeMetrics(cfg.MetricsAddr)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		return err
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(sctx); err != nil {
			slog.Error("metrics server shutdown failed", "error", err)
		}
	}
	slog.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		slog.Info("using in-memory storage")
		return memory.NewStore(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
	return postgres.NewStore(db), closeDB, nil
}
