package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/jpcontreras/vendia-backend/pkg/config"
	"github.com/jpcontreras/vendia-backend/pkg/db"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
	"github.com/jpcontreras/vendia-backend/pkg/migrate"
	"github.com/jpcontreras/vendia-backend/pkg/outbox"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/registry"
	"github.com/jpcontreras/vendia-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	fatalIf(logg, "failed to load config", err)
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	fatalIf(logg, "failed to bootstrap database", err)
	defer closeQuietly(logg, "database", dbClient.Close)

	fatalIf(logg, "failed to run dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	fatalIf(logg, "failed to bootstrap pubsub", err)
	defer closeQuietly(logg, "pubsub client", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	fatalIf(logg, "failed to build event registry", err)

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
	})
	fatalIf(logg, "failed to create outbox publisher", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
	})
	logg.Info(runCtx, "starting outbox publisher")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "outbox publisher shutting down gracefully")
}

func fatalIf(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

func closeQuietly(logg *logger.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
