// Package goldenpips собирает HTTP API: хранилище, кэш, шлюзы оплаты и push,
// очередь писем и сервисы бизнес-логики.
package goldenpips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/golden-pips/internal/cache"
	"github.com/magabrotheeeer/golden-pips/internal/config"
	"github.com/magabrotheeeer/golden-pips/internal/http/middlewarectx"
	"github.com/magabrotheeeer/golden-pips/internal/lib/jwt"
	"github.com/magabrotheeeer/golden-pips/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/migrations"
	"github.com/magabrotheeeer/golden-pips/internal/paymentprovider"
	"github.com/magabrotheeeer/golden-pips/internal/pushprovider"
	"github.com/magabrotheeeer/golden-pips/internal/ratelimit"
	"github.com/magabrotheeeer/golden-pips/internal/services/abuse"
	authservice "github.com/magabrotheeeer/golden-pips/internal/services/auth"
	"github.com/magabrotheeeer/golden-pips/internal/services/notification"
	paymentservice "github.com/magabrotheeeer/golden-pips/internal/services/payment"
	signalservice "github.com/magabrotheeeer/golden-pips/internal/services/signal"
	"github.com/magabrotheeeer/golden-pips/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API сервиса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New поднимает зависимости и собирает роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.DB.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetMailQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	publisher := rabbitmq.NewPublisher(ch)

	var gateway paymentservice.Gateway
	if cfg.PaymentConfigured() {
		gateway = paymentprovider.NewClient(cfg.Payment)
	} else {
		logger.Warn("payment gateway key is not set, payments run in degraded mode")
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	ledger := ratelimit.New(cacheRedis.Db, cfg.PaymentAttempts, cfg.RateLimitWindow)

	services := Services{
		Auth:         authservice.New(db, jwtMaker, publisher, cacheRedis, logger),
		Payment:      paymentservice.New(db, ledger, gateway, abuse.New(db, logger), publisher, cfg.Payment, logger),
		Signal:       signalservice.New(db, cacheRedis, logger),
		Notification: notification.New(db, pushprovider.NewClient(cfg.Push), logger),
		Tokens:       jwtMaker,
		DB:           db,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services, middlewarectx.NewIPLimiter(cfg.PublicRPS, cfg.PublicBurst))

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run обслуживает запросы до отмены ctx и затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
