package goldenpips

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Сгенерированная swagger-спецификация.
	_ "github.com/magabrotheeeer/golden-pips/docs"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/admin/adminusers"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/auth/otp"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/auth/passwordreset"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/health"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/notification/notificationhistory"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/notification/notificationsend"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/profile"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/signal/signalcreate"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/signal/signallist"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/signal/signalremove"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/signal/signalupdate"
	"github.com/magabrotheeeer/golden-pips/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/golden-pips/internal/http/middlewarectx"
	"github.com/magabrotheeeer/golden-pips/internal/metrics"
	authservice "github.com/magabrotheeeer/golden-pips/internal/services/auth"
	"github.com/magabrotheeeer/golden-pips/internal/services/notification"
	paymentservice "github.com/magabrotheeeer/golden-pips/internal/services/payment"
	signalservice "github.com/magabrotheeeer/golden-pips/internal/services/signal"
)

// Services зависимости маршрутов.
type Services struct {
	Auth         *authservice.Service
	Payment      *paymentservice.Service
	Signal       *signalservice.Service
	Notification *notification.Dispatcher
	Tokens       middlewarectx.TokenParser
	DB           health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services, limiter *middlewarectx.IPLimiter) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
	)

	profileHandler := profile.New(logger, s.Auth)
	usersHandler := adminusers.New(logger, s.Auth)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
			r.Post("/auth/otp", otp.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/signup", signup.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/password-reset", passwordreset.NewRequest(logger, s.Auth).ServeHTTP)
			r.Post("/auth/password-reset/confirm", passwordreset.NewConfirm(logger, s.Auth).ServeHTTP)
		})

		// Webhook шлюза, проверяется подписью
		r.Post("/payments/webhook", paymentwebhook.New(logger, s.Payment).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Tokens, logger))

			r.Get("/profile", profileHandler.Get)
			r.Patch("/profile", profileHandler.Update)
			r.Put("/profile/push-token", profileHandler.PushToken)
			r.Get("/subscription", status.New(logger, s.Payment).ServeHTTP)
			r.Post("/payments", paymentcreate.New(logger, s.Payment).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, s.Payment).ServeHTTP)

			r.With(middlewarectx.PremiumMiddleware(logger, s.Payment, s.Auth)).
				Get("/signals", signallist.New(logger, s.Signal).ServeHTTP)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.AdminMiddleware(logger, s.Auth))
				r.Post("/signals", signalcreate.New(logger, s.Signal).ServeHTTP)
				r.Put("/signals/{id}", signalupdate.New(logger, s.Signal).ServeHTTP)
				r.Delete("/signals/{id}", signalremove.New(logger, s.Signal).ServeHTTP)
				r.Post("/notifications", notificationsend.New(logger, s.Notification).ServeHTTP)
				r.Get("/notifications", notificationhistory.New(logger, s.Notification).ServeHTTP)
				r.Post("/users/{id}/upgrade", usersHandler.Upgrade)
				r.Put("/users/{id}/block", usersHandler.Block)
				r.Post("/users/{id}/password-reset", usersHandler.PasswordReset)
				r.Delete("/users/{id}", usersHandler.Delete)
			})
		})
	})

	r.Get("/health", health.New(logger, s.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
