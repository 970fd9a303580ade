package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// GetProfile возвращает профиль пользователя.
func (s *Storage) GetProfile(ctx context.Context, userUID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var (
		p         models.Profile
		reason    sql.NullString
		blockedAt sql.NullTime
		token     sql.NullString
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT user_uid, email, display_name, is_blocked, blocked_reason, blocked_at, push_token
		 FROM profiles WHERE user_uid = $1`, userUID).
		Scan(&p.UserUID, &p.Email, &p.DisplayName, &p.IsBlocked, &reason, &blockedAt, &token)
	if err != nil {
		return nil, notFound(op, err)
	}
	if reason.Valid {
		p.BlockedReason = &reason.String
	}
	if blockedAt.Valid {
		p.BlockedAt = &blockedAt.Time
	}
	if token.Valid {
		p.PushToken = &token.String
	}
	return &p, nil
}

// UpdateDisplayName меняет отображаемое имя.
func (s *Storage) UpdateDisplayName(ctx context.Context, userUID, displayName string) error {
	const op = "storage.UpdateDisplayName"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE profiles SET display_name = $2, updated_at = now() WHERE user_uid = $1`,
		userUID, displayName)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectAffected(op, res)
}

// SetPushToken сохраняет токен устройства. Пустой токен удаляет его.
func (s *Storage) SetPushToken(ctx context.Context, userUID, token string) error {
	const op = "storage.SetPushToken"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE profiles SET push_token = NULLIF($2, ''), updated_at = now() WHERE user_uid = $1`,
		userUID, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectAffected(op, res)
}

// SetBlocked блокирует или разблокирует пользователя.
func (s *Storage) SetBlocked(ctx context.Context, userUID string, blocked bool, reason *string, at time.Time) error {
	const op = "storage.SetBlocked"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	var (
		res sql.Result
		err error
	)
	if blocked {
		res, err = s.DB.ExecContext(ctx,
			`UPDATE profiles SET is_blocked = true, blocked_reason = $2, blocked_at = $3, updated_at = now()
			 WHERE user_uid = $1`, userUID, reason, at)
	} else {
		res, err = s.DB.ExecContext(ctx,
			`UPDATE profiles SET is_blocked = false, blocked_reason = NULL, blocked_at = NULL, updated_at = now()
			 WHERE user_uid = $1`, userUID)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectAffected(op, res)
}

// ListPushRecipients возвращает незаблокированные профили с токеном устройства
// вместе с последней строкой подписки.
func (s *Storage) ListPushRecipients(ctx context.Context) ([]models.PushRecipient, error) {
	const op = "storage.ListPushRecipients"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT p.user_uid, p.push_token,
		       s.id, s.status, s.is_first_time_user, s.abuse_detected,
		       s.started_at, s.expires_at, s.price_paid, s.payment_gateway, s.payment_tx_hash, s.created_at
		FROM profiles p
		LEFT JOIN LATERAL (
			SELECT * FROM subscriptions
			WHERE user_uid = p.user_uid
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) s ON true
		WHERE p.push_token IS NOT NULL AND p.is_blocked = false`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var recipients []models.PushRecipient
	for rows.Next() {
		var (
			r     models.PushRecipient
			subID sql.NullInt64
			row   subscriptionRow
		)
		if err := rows.Scan(&r.UserUID, &r.PushToken,
			&subID, &row.status, &row.isFirstTime, &row.abuse,
			&row.startedAt, &row.expiresAt, &row.pricePaid, &row.gateway, &row.txHash, &row.createdAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if subID.Valid {
			row.id = subID.Int64
			sub := row.toModel(r.UserUID)
			r.Subscription = &sub
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return recipients, nil
}
