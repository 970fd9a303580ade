// Package scheduler собирает планировщик истечения подписок и зависших платежей.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/golden-pips/internal/config"
	"github.com/magabrotheeeer/golden-pips/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	schedulerservice "github.com/magabrotheeeer/golden-pips/internal/services/scheduler"
	"github.com/magabrotheeeer/golden-pips/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.Service
	spec             string
	db               *repository.Storage
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		if err := repository.CheckDatabaseReady(db); err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(db); err != nil {
		_ = db.DB.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetMailQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	return &App{
		schedulerService: schedulerservice.New(db, rabbitmq.NewPublisher(ch), cfg.PendingPaymentTTL, logger),
		spec:             cfg.ExpirySpec,
		db:               db,
		conn:             conn,
		ch:               ch,
		logger:           logger,
	}, nil
}

// Run запускает cron и ждет отмены ctx.
func (a *App) Run(ctx context.Context) error {
	c, err := a.schedulerService.Start(ctx, a.spec)
	if err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutting down scheduler service")
	<-c.Stop().Done()

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
