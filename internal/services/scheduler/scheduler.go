// Package scheduler периодически закрывает истёкшие подписки и зависшие платежи.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/golden-pips/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/metrics"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// Repository операции истечения сроков.
type Repository interface {
	ExpireLapsed(ctx context.Context, now time.Time) ([]models.ExpiredSubscription, error)
	ExpireStalePayments(ctx context.Context, before time.Time) (int64, error)
}

// EmailQueue очередь исходящих писем.
type EmailQueue interface {
	Publish(routingKey string, message any) error
}

// Report итог одного прогона.
type Report struct {
	ExpiredSubscriptions int
	ExpiredPayments      int64
	EmailsQueued         int
}

// Service планировщик истечения сроков.
type Service struct {
	repo       Repository
	emails     EmailQueue
	pendingTTL time.Duration
	log        *slog.Logger
	now        func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, emails EmailQueue, pendingTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		emails:     emails,
		pendingTTL: pendingTTL,
		log:        log,
		now:        time.Now,
	}
}

func expiryEmail(e models.ExpiredSubscription) models.EmailMessage {
	return models.EmailMessage{
		To:      e.Email,
		Subject: "Golden Pips: премиум-подписка закончилась",
		Body: "Здравствуйте!\n\nСрок вашей премиум-подписки Golden Pips истёк, доступ к сигналам закрыт.\n\n" +
			"Продлить подписку можно в приложении в разделе «Подписка».",
	}
}

// RunExpiry переводит истёкшие подписки в expired, уведомляет владельцев
// и помечает зависшие платежи как expired.
func (s *Service) RunExpiry(ctx context.Context) (Report, error) {
	const op = "scheduler.RunExpiry"
	log := s.log.With(slog.String("op", op))
	now := s.now().UTC()
	var report Report

	expired, err := s.repo.ExpireLapsed(ctx, now)
	if err != nil {
		return report, fmt.Errorf("%s: %w", op, err)
	}
	report.ExpiredSubscriptions = len(expired)
	metrics.SubscriptionsExpired.Add(float64(len(expired)))

	for _, e := range expired {
		if e.Email == "" {
			continue
		}
		if err := s.emails.Publish(rabbitmq.RoutingKeyEmail, expiryEmail(e)); err != nil {
			log.Error("failed to publish expiry email", slog.String("user_uid", e.UserUID), sl.Err(err))
			continue
		}
		report.EmailsQueued++
	}

	if s.pendingTTL > 0 {
		n, err := s.repo.ExpireStalePayments(ctx, now.Add(-s.pendingTTL))
		if err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}
		report.ExpiredPayments = n
	}

	log.Info("expiry run finished",
		slog.Int("subscriptions", report.ExpiredSubscriptions),
		slog.Int64("payments", report.ExpiredPayments),
		slog.Int("emails", report.EmailsQueued),
	)
	return report, nil
}

// Start регистрирует задачу по cron-выражению и запускает её один раз сразу.
// Планировщик останавливается при отмене ctx.
func (s *Service) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	const op = "scheduler.Start"
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	job := func() {
		if _, err := s.RunExpiry(ctx); err != nil {
			s.log.Error("expiry run failed", slog.String("op", op), sl.Err(err))
		}
	}
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("%s: invalid spec %q: %w", op, spec, err)
	}
	job()
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
