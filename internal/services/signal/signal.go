// Package signal управляет торговыми сигналами: администратор создаёт,
// правит и удаляет их, премиум-пользователи читают список.
package signal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/golden-pips/internal/cache"
	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// DefaultLimit размер страницы по умолчанию, только она кэшируется.
const DefaultLimit = 50

const listTTL = 5 * time.Minute

// Repository хранилище сигналов.
type Repository interface {
	CreateSignal(ctx context.Context, sig models.Signal) (*models.Signal, error)
	UpdateSignal(ctx context.Context, sig models.Signal) (*models.Signal, error)
	DeleteSignal(ctx context.Context, id int) error
	ListSignals(ctx context.Context, limit, offset int) ([]*models.Signal, error)
}

// Cache кэш списка сигналов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service операции над сигналами.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает Service. cache может быть nil, тогда список читается из базы.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log}
}

func parsePrice(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s must be a number", apperr.ErrValidation, name)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive", apperr.ErrValidation, name)
	}
	return d, nil
}

// FromDummy проверяет входной сигнал и переводит цены в decimal.
func FromDummy(in models.DummySignal) (models.Signal, error) {
	var sig models.Signal
	sig.Pair = strings.ToUpper(strings.TrimSpace(in.Pair))
	if sig.Pair == "" {
		return sig, fmt.Errorf("%w: pair is required", apperr.ErrValidation)
	}
	if in.Type != "buy" && in.Type != "sell" {
		return sig, fmt.Errorf("%w: type must be buy or sell", apperr.ErrValidation)
	}
	sig.Type = in.Type

	var err error
	if sig.EntryPrice, err = parsePrice("entry_price", in.EntryPrice); err != nil {
		return sig, err
	}
	if sig.StopLoss, err = parsePrice("stop_loss", in.StopLoss); err != nil {
		return sig, err
	}
	if sig.TakeProfit1, err = parsePrice("take_profit_1", in.TakeProfit1); err != nil {
		return sig, err
	}
	if sig.TakeProfit2, err = parsePrice("take_profit_2", in.TakeProfit2); err != nil {
		return sig, err
	}

	switch in.Status {
	case "":
		sig.Status = models.SignalActive
	case models.SignalActive, models.SignalTP1Hit, models.SignalTP2Hit, models.SignalSLHit, models.SignalClosed:
		sig.Status = in.Status
	default:
		return sig, fmt.Errorf("%w: unknown status %q", apperr.ErrValidation, in.Status)
	}
	if in.Notes != nil && strings.TrimSpace(*in.Notes) != "" {
		notes := strings.TrimSpace(*in.Notes)
		sig.Notes = &notes
	}
	return sig, nil
}

// Create публикует новый сигнал от имени администратора.
func (s *Service) Create(ctx context.Context, adminUID string, in models.DummySignal) (*models.Signal, error) {
	const op = "signal.Create"
	sig, err := FromDummy(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sig.CreatedBy = adminUID
	created, err := s.repo.CreateSignal(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op)
	return created, nil
}

// Update перезаписывает сигнал. Любой статус допустим из любого.
func (s *Service) Update(ctx context.Context, id int, in models.DummySignal) (*models.Signal, error) {
	const op = "signal.Update"
	sig, err := FromDummy(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sig.ID = id
	updated, err := s.repo.UpdateSignal(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op)
	return updated, nil
}

// Delete удаляет сигнал.
func (s *Service) Delete(ctx context.Context, id int) error {
	const op = "signal.Delete"
	if err := s.repo.DeleteSignal(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op)
	return nil
}

// List возвращает сигналы, первая страница берётся из кэша.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.Signal, error) {
	const op = "signal.List"
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	cacheable := s.cache != nil && limit == DefaultLimit && offset == 0

	if cacheable {
		var cached []*models.Signal
		found, err := s.cache.Get(ctx, cache.KeySignals, &cached)
		if err != nil {
			s.log.Warn("signals cache read failed", slog.String("op", op), sl.Err(err))
		} else if found {
			return cached, nil
		}
	}

	signals, err := s.repo.ListSignals(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cacheable {
		if err := s.cache.Set(ctx, cache.KeySignals, signals, listTTL); err != nil {
			s.log.Warn("signals cache write failed", slog.String("op", op), sl.Err(err))
		}
	}
	return signals, nil
}

func (s *Service) invalidate(ctx context.Context, op string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.KeySignals); err != nil {
		s.log.Warn("signals cache invalidation failed", slog.String("op", op), sl.Err(err))
	}
}
