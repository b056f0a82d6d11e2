package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jpcontreras/vendia-backend/api/controllers"
	ordercontrollers "github.com/jpcontreras/vendia-backend/api/controllers/orders"
	paymentcontrollers "github.com/jpcontreras/vendia-backend/api/controllers/payments"
	"github.com/jpcontreras/vendia-backend/api/middleware"
	"github.com/jpcontreras/vendia-backend/internal/auth"
	"github.com/jpcontreras/vendia-backend/internal/notifications"
	"github.com/jpcontreras/vendia-backend/internal/orders"
	"github.com/jpcontreras/vendia-backend/internal/payments"
	"github.com/jpcontreras/vendia-backend/internal/products"
	"github.com/jpcontreras/vendia-backend/internal/rates"
	"github.com/jpcontreras/vendia-backend/pkg/auth/session"
	"github.com/jpcontreras/vendia-backend/pkg/config"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
	"github.com/jpcontreras/vendia-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs. cmd/api owns construction.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *redis.Client
	HealthPingers  map[string]controllers.HealthPinger
	SessionManager *session.Manager

	AuthService          auth.Service
	RegisterService      auth.RegisterService
	SessionRevoker       *auth.SessionRevoker
	OrdersService        orders.Service
	PaymentsService      payments.Service
	RatesService         rates.Service
	ProductsService      products.Service
	NotificationsService notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(nil),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.HealthPingers))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.AuthRegister(d.RegisterService, d.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(d.AuthService, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.SessionManager, logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(d.OrdersService, logg))
			r.Get("/", ordercontrollers.List(d.OrdersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(d.OrdersService, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(d.OrdersService, logg))
			r.Post("/{orderId}/payments", paymentcontrollers.Submit(d.PaymentsService, logg))
		})
		r.Delete("/payments/{paymentId}", paymentcontrollers.Delete(d.PaymentsService, logg))

		r.Get("/rates", controllers.ClientRates(d.RatesService, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(d.ProductsService, logg))
			r.Get("/{productId}", controllers.ProductDetail(d.ProductsService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.NotificationsService, cfg.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.NotificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.NotificationsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.SessionManager, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(d.OrdersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(d.OrdersService, logg))
			r.Post("/{orderId}/approve", ordercontrollers.AdminApprove(d.OrdersService, logg))
			r.Post("/{orderId}/reject", ordercontrollers.AdminReject(d.OrdersService, logg))
			r.Post("/{orderId}/complete", ordercontrollers.AdminComplete(d.OrdersService, logg))
			r.Put("/{orderId}/status", ordercontrollers.AdminOverrideStatus(d.OrdersService, logg))
			r.Delete("/{orderId}", ordercontrollers.AdminDelete(d.OrdersService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/{paymentId}/verify", paymentcontrollers.AdminVerify(d.PaymentsService, logg))
			r.Post("/{paymentId}/reject", paymentcontrollers.AdminReject(d.PaymentsService, logg))
			r.Delete("/{paymentId}", paymentcontrollers.Delete(d.PaymentsService, logg))
		})

		r.Route("/rates", func(r chi.Router) {
			r.Get("/", controllers.AdminRates(d.RatesService, logg))
			r.Put("/", controllers.AdminUpdateRates(d.RatesService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(d.ProductsService, logg))
			r.Post("/", controllers.AdminCreateProduct(d.ProductsService, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(d.ProductsService, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(d.ProductsService, logg))
		})

		r.Post("/sessions/{userId}/revoke", controllers.AdminRevokeSessions(d.SessionRevoker, logg))
	})

	return r
}
