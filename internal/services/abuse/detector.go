// Package abuse обнаруживает повторную регистрацию ради скидки первой оплаты:
// пользователей с тем же нормализованным адресом, у которых уже была оплата.
package abuse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/golden-pips/internal/lib/email"
	"github.com/magabrotheeeer/golden-pips/internal/metrics"
)

// Repository доступ к индексу адресов и подпискам.
type Repository interface {
	ListUsersByNormalizedEmail(ctx context.Context, normalizedEmail, exceptUID string) ([]string, error)
	HasPaidSubscription(ctx context.Context, userUIDs []string) (bool, error)
	MarkAbuse(ctx context.Context, userUID string) error
}

// Detector детектор злоупотреблений скидкой.
type Detector struct {
	repo Repository
	log  *slog.Logger
}

// New создает Detector.
func New(repo Repository, log *slog.Logger) *Detector {
	return &Detector{repo: repo, log: log}
}

// ForceRegularPrice возвращает true, если другой аккаунт с тем же нормализованным
// адресом уже платил. В этом случае у подписки userUID снимается право
// на первую цену и ставится отметка злоупотребления.
// Аккаунты, которые не платили, на результат не влияют.
func (d *Detector) ForceRegularPrice(ctx context.Context, rawEmail, userUID string) (bool, error) {
	const op = "abuse.ForceRegularPrice"
	normalized := email.Normalize(rawEmail)

	matches, err := d.repo.ListUsersByNormalizedEmail(ctx, normalized, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if len(matches) == 0 {
		return false, nil
	}

	paid, err := d.repo.HasPaidSubscription(ctx, matches)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !paid {
		return false, nil
	}

	if err := d.repo.MarkAbuse(ctx, userUID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	metrics.AbuseDetected.Inc()
	d.log.Warn("first-time discount abuse detected",
		slog.String("op", op),
		slog.String("user_uid", userUID),
		slog.Int("matched_accounts", len(matches)),
	)
	return true, nil
}
