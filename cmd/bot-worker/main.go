package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/orderdeskhq/orderdesk-backend/internal/bridge"
	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/internal/staff"
	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox/idempotency"
	"github.com/orderdeskhq/orderdesk-backend/pkg/pubsub"
	"github.com/orderdeskhq/orderdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "bot-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "bot-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	botClient, err := bridge.NewClient(cfg.Bot.APIBaseURL, cfg.Bot.Token, cfg.Bot.RequestTimeout)
	if err != nil {
		logg.Error(ctx, "failed to create bot client", err)
		os.Exit(1)
	}

	notifier, err := bridge.NewNotifier(botClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notifier", err)
		os.Exit(1)
	}

	staffSvc, err := staff.NewService(staff.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create staff service", err)
		os.Exit(1)
	}

	idemManager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency manager", err)
		os.Exit(1)
	}

	botConsumer, err := bridge.NewConsumer(
		notifier,
		orders.NewRepository(dbClient.DB()),
		staffSvc,
		pubsubClient.BotSubscription(),
		idemManager,
		cfg.Bot.CouriersChannelID,
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to create bot consumer", err)
		os.Exit(1)
	}

	svc, err := NewService(ServiceParams{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		PubSub:      pubsubClient,
		BotConsumer: botConsumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create bot worker service", err)
		os.Exit(1)
	}

	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": id,
	})
	logg.Info(logCtx, "starting bot worker")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(logCtx, "bot worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(logCtx, "bot worker shutting down gracefully")
}
