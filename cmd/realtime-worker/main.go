package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpcontreras/vendia-backend/api/controllers"
	"github.com/jpcontreras/vendia-backend/api/middleware"
	"github.com/jpcontreras/vendia-backend/internal/notifications"
	"github.com/jpcontreras/vendia-backend/internal/realtime"
	"github.com/jpcontreras/vendia-backend/internal/users"
	"github.com/jpcontreras/vendia-backend/pkg/auth/session"
	"github.com/jpcontreras/vendia-backend/pkg/config"
	"github.com/jpcontreras/vendia-backend/pkg/db"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
	"github.com/jpcontreras/vendia-backend/pkg/metrics"
	"github.com/jpcontreras/vendia-backend/pkg/migrate"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/idempotency"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/registry"
	"github.com/jpcontreras/vendia-backend/pkg/pubsub"
	"github.com/jpcontreras/vendia-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "realtime-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "realtime-worker"

	logg = logger.New(logger.Options{
		ServiceName: "realtime-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	realtimeMetrics := metrics.NewRealtimeMetrics(prometheus.DefaultRegisterer)
	hub, err := realtime.NewHub(cfg.Realtime, logg, realtimeMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create hub", err)
		os.Exit(1)
	}

	idempotencyManager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		logg.Error(context.Background(), "failed to build event registry", err)
		os.Exit(1)
	}

	consumer, err := realtime.NewConsumer(
		pubsubClient.RealtimeSubscription(),
		eventRegistry,
		idempotencyManager,
		notifications.NewRepository(dbClient.DB()),
		users.NewRepository(dbClient.DB()),
		hub,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, map[string]controllers.HealthPinger{
		"database": dbClient,
		"redis":    redisClient,
		"pubsub":   pubsubClient,
	}))
	r.Get("/ws", realtime.ServeWS(hub, cfg.JWT, cfg.Realtime, sessionManager, logg))

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting realtime worker")
		serverErr <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-consumerErr:
	case runErr = <-serverErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "error shutting down http server", err)
	}
	hub.Close()

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, http.ErrServerClosed) {
		logg.Error(ctx, "realtime worker stopped unexpectedly", runErr)
		os.Exit(1)
	}

	logg.Info(ctx, "realtime worker shutting down gracefully")
}
