package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/jpcontreras/vendia-backend/api/controllers"
	"github.com/jpcontreras/vendia-backend/api/routes"
	"github.com/jpcontreras/vendia-backend/internal/auth"
	"github.com/jpcontreras/vendia-backend/internal/notifications"
	"github.com/jpcontreras/vendia-backend/internal/orders"
	"github.com/jpcontreras/vendia-backend/internal/payments"
	"github.com/jpcontreras/vendia-backend/internal/products"
	"github.com/jpcontreras/vendia-backend/internal/rates"
	"github.com/jpcontreras/vendia-backend/internal/users"
	"github.com/jpcontreras/vendia-backend/pkg/auth/session"
	"github.com/jpcontreras/vendia-backend/pkg/config"
	"github.com/jpcontreras/vendia-backend/pkg/db"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
	"github.com/jpcontreras/vendia-backend/pkg/migrate"
	"github.com/jpcontreras/vendia-backend/pkg/outbox"
	"github.com/jpcontreras/vendia-backend/pkg/redis"
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

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	sessionRevoker, err := auth.NewSessionRevoker(usersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create session revoker", err)
		os.Exit(1)
	}

	ratesService, err := rates.NewService(rates.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create rates service", err)
		os.Exit(1)
	}

	productsRepo := products.NewRepository(dbClient.DB())
	productsService, err := products.NewService(productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, productsRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		ordersRepo,
		ratesService,
		dbClient,
		outboxService,
		cfg.Ledger.Tolerance,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config: cfg,
		Logger: logg,
		Redis:  redisClient,
		HealthPingers: map[string]controllers.HealthPinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		SessionManager:       sessionManager,
		AuthService:          authService,
		RegisterService:      registerService,
		SessionRevoker:       sessionRevoker,
		OrdersService:        ordersService,
		PaymentsService:      paymentsService,
		RatesService:         ratesService,
		ProductsService:      productsService,
		NotificationsService: notificationsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
