// Package notification рассылает push-уведомления сегментам пользователей.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/metrics"
	"github.com/magabrotheeeer/golden-pips/internal/models"
	"github.com/magabrotheeeer/golden-pips/internal/pushprovider"
)

// Repository профили с токенами и журнал рассылок.
type Repository interface {
	ListPushRecipients(ctx context.Context) ([]models.PushRecipient, error)
	CreateNotification(ctx context.Context, n models.NotificationRecord) (int, error)
	ListNotifications(ctx context.Context, limit, offset int) ([]*models.NotificationRecord, error)
}

// Transport отправка одного пакета push-уведомлений.
type Transport interface {
	Decorate(title, body string) pushprovider.Notification
	SendBatch(ctx context.Context, tokens []string, n pushprovider.Notification, data map[string]string) (pushprovider.BatchResult, error)
}

// Request параметры рассылки.
type Request struct {
	Title    string
	Body     string
	Audience string
	Data     map[string]string
}

// Dispatcher рассылает уведомления по сегментам.
type Dispatcher struct {
	repo      Repository
	transport Transport
	batchSize int
	log       *slog.Logger
	now       func() time.Time
}

// New создает Dispatcher.
func New(repo Repository, transport Transport, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		transport: transport,
		batchSize: pushprovider.MaxBatchSize,
		log:       log,
		now:       time.Now,
	}
}

func validate(req Request) error {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" {
		return fmt.Errorf("%w: title and body are required", apperr.ErrValidation)
	}
	switch req.Audience {
	case models.AudienceAll, models.AudiencePremium, models.AudienceFree:
		return nil
	default:
		return fmt.Errorf("%w: audience must be one of all, premium, free", apperr.ErrValidation)
	}
}

// SelectTokens отбирает токены получателей для сегмента по единому правилу премиума.
func SelectTokens(recipients []models.PushRecipient, audience string, now time.Time) []string {
	tokens := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r.PushToken == "" {
			continue
		}
		switch audience {
		case models.AudienceAll:
		case models.AudiencePremium:
			if !models.IsPremium(r.Subscription, now) {
				continue
			}
		case models.AudienceFree:
			if models.IsPremium(r.Subscription, now) {
				continue
			}
		default:
			continue
		}
		tokens = append(tokens, r.PushToken)
	}
	return tokens
}

// Batches режет токены на пакеты не больше size.
func Batches(tokens []string, size int) [][]string {
	if size <= 0 {
		size = pushprovider.MaxBatchSize
	}
	batches := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		batches = append(batches, tokens[start:end])
	}
	return batches
}

// Dispatch записывает рассылку в журнал и отправляет ее пакетами параллельно.
// Ошибка пакета засчитывается как недоставка всех его получателей
// и не прерывает рассылку.
func (d *Dispatcher) Dispatch(ctx context.Context, senderUID string, req Request) (*models.DispatchResult, error) {
	const op = "notification.Dispatch"
	log := d.log.With(slog.String("op", op), slog.String("audience", req.Audience))

	if err := validate(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	recipients, err := d.repo.ListPushRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tokens := SelectTokens(recipients, req.Audience, d.now())

	if _, err := d.repo.CreateNotification(ctx, models.NotificationRecord{
		Title:    req.Title,
		Body:     req.Body,
		Audience: req.Audience,
		SentBy:   senderUID,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	batches := Batches(tokens, d.batchSize)
	result := &models.DispatchResult{Targeted: len(tokens), Batches: len(batches)}
	notification := d.transport.Decorate(req.Title, req.Body)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		g.Go(func() error {
			res, err := d.transport.SendBatch(gctx, batch, notification, req.Data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error("push batch failed", slog.Int("batch", i), slog.Int("size", len(batch)), sl.Err(err))
				result.Failure += len(batch)
				return nil
			}
			result.Success += res.Success
			result.Failure += res.Failure
			return nil
		})
	}
	_ = g.Wait()

	metrics.PushDeliveries.WithLabelValues("success").Add(float64(result.Success))
	metrics.PushDeliveries.WithLabelValues("failure").Add(float64(result.Failure))
	log.Info("notification dispatched",
		slog.Int("targeted", result.Targeted),
		slog.Int("batches", result.Batches),
		slog.Int("success", result.Success),
		slog.Int("failure", result.Failure),
	)
	return result, nil
}

// History возвращает журнал рассылок.
func (d *Dispatcher) History(ctx context.Context, limit, offset int) ([]*models.NotificationRecord, error) {
	const op = "notification.History"
	records, err := d.repo.ListNotifications(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}
