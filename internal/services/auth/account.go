package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/golden-pips/internal/cache"
	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// MaxDisplayNameLength ограничение длины отображаемого имени.
const MaxDisplayNameLength = 64

// ManualUpgradeDays срок премиума, выданного администратором.
const ManualUpgradeDays = 30

const roleTTL = 10 * time.Minute

// IsAdmin проверяет роль администратора, результат кэшируется.
func (s *Service) IsAdmin(ctx context.Context, userUID string) (bool, error) {
	const op = "auth.IsAdmin"
	key := cache.KeyRole(userUID)
	if s.cache != nil {
		var admin bool
		found, err := s.cache.Get(ctx, key, &admin)
		if err != nil {
			s.log.Warn("role cache read failed", slog.String("op", op), sl.Err(err))
		} else if found {
			return admin, nil
		}
	}

	admin, err := s.repo.HasRole(ctx, userUID, models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, admin, roleTTL); err != nil {
			s.log.Warn("role cache write failed", slog.String("op", op), sl.Err(err))
		}
	}
	return admin, nil
}

// Profile возвращает профиль пользователя.
func (s *Service) Profile(ctx context.Context, userUID string) (*models.Profile, error) {
	const op = "auth.Profile"
	p, err := s.repo.GetProfile(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// UpdateDisplayName меняет отображаемое имя.
func (s *Service) UpdateDisplayName(ctx context.Context, userUID, displayName string) error {
	const op = "auth.UpdateDisplayName"
	name := strings.TrimSpace(displayName)
	if name == "" || utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return fmt.Errorf("%s: %w: display name must be 1-%d characters", op, apperr.ErrValidation, MaxDisplayNameLength)
	}
	if err := s.repo.UpdateDisplayName(ctx, userUID, name); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RegisterPushToken сохраняет токен устройства. Пустой токен отключает push.
func (s *Service) RegisterPushToken(ctx context.Context, userUID, token string) error {
	const op = "auth.RegisterPushToken"
	if err := s.repo.SetPushToken(ctx, userUID, strings.TrimSpace(token)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetBlocked блокирует или разблокирует пользователя.
func (s *Service) SetBlocked(ctx context.Context, userUID string, blocked bool, reason string) error {
	const op = "auth.SetBlocked"
	var r *string
	if blocked && strings.TrimSpace(reason) != "" {
		trimmed := strings.TrimSpace(reason)
		r = &trimmed
	}
	if err := s.repo.SetBlocked(ctx, userUID, blocked, r, s.now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user block state changed", slog.String("op", op),
		slog.String("user_uid", userUID), slog.Bool("blocked", blocked))
	return nil
}

// ManualUpgrade выдаёт премиум на ManualUpgradeDays без оплаты.
func (s *Service) ManualUpgrade(ctx context.Context, userUID string) (*models.Activation, error) {
	const op = "auth.ManualUpgrade"
	now := s.now().UTC()
	a := models.Activation{
		UserUID:   userUID,
		StartedAt: now,
		ExpiresAt: now.AddDate(0, 0, ManualUpgradeDays),
		PricePaid: decimal.Zero,
		Gateway:   models.GatewayManual,
	}
	if err := s.repo.ManualUpgrade(ctx, a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("premium granted manually", slog.String("op", op), slog.String("user_uid", userUID))
	return &a, nil
}

// AdminPasswordReset отправляет пользователю код сброса пароля по запросу администратора.
func (s *Service) AdminPasswordReset(ctx context.Context, userUID string) error {
	const op = "auth.AdminPasswordReset"
	user, err := s.repo.GetUserByUID(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.issueOTP(ctx, user.Email, models.OTPPasswordReset); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteAccount удаляет учётную запись со всеми зависимыми данными.
func (s *Service) DeleteAccount(ctx context.Context, userUID string) error {
	const op = "auth.DeleteAccount"
	if err := s.repo.DeleteAccount(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cache.KeyRole(userUID)); err != nil {
			s.log.Warn("role cache invalidation failed", slog.String("op", op), sl.Err(err))
		}
	}
	s.log.Info("account deleted", slog.String("op", op), slog.String("user_uid", userUID))
	return nil
}
