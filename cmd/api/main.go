package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orderdeskhq/orderdesk-backend/api/controllers"
	"github.com/orderdeskhq/orderdesk-backend/api/routes"
	"github.com/orderdeskhq/orderdesk-backend/internal/assignments"
	"github.com/orderdeskhq/orderdesk-backend/internal/bridge"
	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/internal/realtime"
	"github.com/orderdeskhq/orderdesk-backend/internal/staff"
	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
	"github.com/orderdeskhq/orderdesk-backend/pkg/migrate"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox"
	"github.com/orderdeskhq/orderdesk-backend/pkg/outbox/idempotency"
	"github.com/orderdeskhq/orderdesk-backend/pkg/pubsub"
	"github.com/orderdeskhq/orderdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

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

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersRepo := orders.NewRepository(dbClient.DB())

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	staffSvc, err := staff.NewService(staff.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create staff service", err)
		os.Exit(1)
	}

	assignmentsSvc, err := assignments.NewService(
		assignments.NewRepository(dbClient.DB()), ordersRepo, staffSvc, dbClient, outboxSvc)
	if err != nil {
		logg.Error(ctx, "failed to create assignments service", err)
		os.Exit(1)
	}

	idemManager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency manager", err)
		os.Exit(1)
	}

	hub := realtime.NewHub(cfg.Realtime.SubscriberBuffer, metrics.NewRealtimeMetrics(prometheus.DefaultRegisterer))

	realtimeConsumer, err := realtime.NewConsumer(hub, pubsubClient.RealtimeSubscription(), idemManager, logg)
	if err != nil {
		logg.Error(ctx, "failed to create realtime consumer", err)
		os.Exit(1)
	}
	go func() {
		if err := realtimeConsumer.Run(ctx); err != nil && ctx.Err() == nil {
			logg.Error(ctx, "realtime consumer stopped unexpectedly", err)
		}
	}()

	deps := routes.Deps{
		Config: cfg,
		Logger: logg,
		Redis:  redisClient,
		HealthDeps: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
		},
		Orders:      ordersSvc,
		Assignments: assignmentsSvc,
		Staff:       staffSvc,
		Hub:         hub,
	}

	if cfg.Bot.Token != "" && cfg.Bot.APIBaseURL != "" {
		callback, guard, err := buildBotCallback(cfg, logg, redisClient, ordersSvc, staffSvc)
		if err != nil {
			logg.Error(ctx, "failed to wire bot webhook", err)
			os.Exit(1)
		}
		deps.BotCallback = callback
		deps.BotGuard = guard
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "error shutting down api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(logCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(logCtx, "api server stopped")
}

func buildBotCallback(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	staffSvc staff.Service,
) (*bridge.CallbackHandler, *bridge.WebhookGuard, error) {
	client, err := bridge.NewClient(cfg.Bot.APIBaseURL, cfg.Bot.Token, cfg.Bot.RequestTimeout)
	if err != nil {
		return nil, nil, err
	}
	notifier, err := bridge.NewNotifier(client, logg)
	if err != nil {
		return nil, nil, err
	}
	primary, err := bridge.NewDirectPort(ordersSvc)
	if err != nil {
		return nil, nil, err
	}
	var fallback bridge.TransitionPort
	if cfg.Bot.TransitionAPIURL != "" {
		httpPort, err := bridge.NewHTTPPort(cfg.Bot.TransitionAPIURL, bridge.ServiceTokenSource(cfg.JWT), cfg.Bot.RequestTimeout)
		if err != nil {
			return nil, nil, err
		}
		fallback = httpPort
	}
	handler, err := bridge.NewCallbackHandler(client, notifier, staffSvc, primary, fallback, logg)
	if err != nil {
		return nil, nil, err
	}
	guard, err := bridge.NewWebhookGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL, "bot-webhook")
	if err != nil {
		return nil, nil, err
	}
	return handler, guard, nil
}
