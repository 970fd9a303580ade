package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/golden-pips/internal/models"
)

const latestSubscriptionID = `(SELECT id FROM subscriptions WHERE user_uid = $1 ORDER BY created_at DESC, id DESC LIMIT 1)`

// subscriptionRow строка подписки с nullable-полями, в том числе из LEFT JOIN.
type subscriptionRow struct {
	id          int64
	status      sql.NullString
	isFirstTime sql.NullBool
	abuse       sql.NullBool
	startedAt   sql.NullTime
	expiresAt   sql.NullTime
	pricePaid   decimal.NullDecimal
	gateway     sql.NullString
	txHash      sql.NullString
	createdAt   sql.NullTime
}

func (r subscriptionRow) toModel(userUID string) models.Subscription {
	sub := models.Subscription{
		ID:              int(r.id),
		UserUID:         userUID,
		Status:          r.status.String,
		IsFirstTimeUser: r.isFirstTime.Bool,
		AbuseDetected:   r.abuse.Bool,
		CreatedAt:       r.createdAt.Time,
	}
	if r.startedAt.Valid {
		sub.StartedAt = &r.startedAt.Time
	}
	if r.expiresAt.Valid {
		sub.ExpiresAt = &r.expiresAt.Time
	}
	if r.pricePaid.Valid {
		sub.PricePaid = &r.pricePaid.Decimal
	}
	if r.gateway.Valid {
		sub.PaymentGateway = &r.gateway.String
	}
	if r.txHash.Valid {
		sub.PaymentTxHash = &r.txHash.String
	}
	return sub
}

// GetLatestSubscription возвращает самую свежую строку подписки пользователя
// или nil, если строк нет.
func (s *Storage) GetLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetLatestSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var row subscriptionRow
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, status, is_first_time_user, abuse_detected, started_at, expires_at,
		       price_paid, payment_gateway, payment_tx_hash, created_at
		FROM subscriptions
		WHERE user_uid = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userUID).
		Scan(&row.id, &row.status, &row.isFirstTime, &row.abuse, &row.startedAt, &row.expiresAt,
			&row.pricePaid, &row.gateway, &row.txHash, &row.createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub := row.toModel(userUID)
	return &sub, nil
}

// HasPaidSubscription проверяет, была ли у кого-то из пользователей оплаченная подписка.
func (s *Storage) HasPaidSubscription(ctx context.Context, userUIDs []string) (bool, error) {
	const op = "storage.HasPaidSubscription"
	if len(userUIDs) == 0 {
		return false, nil
	}
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE user_uid::text = ANY($1::text[]) AND is_first_time_user = false
		)`, userUIDs).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// MarkAbuse снимает право на первую цену и отмечает злоупотребление
// на последней строке подписки. Если строк нет, создаёт бесплатную.
func (s *Storage) MarkAbuse(ctx context.Context, userUID string) error {
	const op = "storage.MarkAbuse"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE subscriptions
			SET is_first_time_user = false, abuse_detected = true, updated_at = now()
			WHERE id = `+latestSubscriptionID, userUID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO subscriptions (user_uid, status, is_first_time_user, abuse_detected)
			VALUES ($1, $2, false, true)`, userUID, models.StatusFree)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// activate переводит последнюю подписку в premium, либо создаёт строку,
// если у пользователя подписок нет.
func activate(ctx context.Context, tx *sql.Tx, a models.Activation, firstTimeUsed bool) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $2, started_at = $3, expires_at = $4,
		    is_first_time_user = CASE WHEN $5 THEN false ELSE is_first_time_user END,
		    price_paid = $6, payment_gateway = $7, payment_tx_hash = $8, updated_at = now()
		WHERE id = `+latestSubscriptionID,
		a.UserUID, models.StatusPremium, a.StartedAt, a.ExpiresAt, firstTimeUsed,
		a.PricePaid, a.Gateway, nullString(a.TxHash))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscriptions (user_uid, status, started_at, expires_at, is_first_time_user,
		                           price_paid, payment_gateway, payment_tx_hash)
		VALUES ($1, $2, $3, $4, NOT $5, $6, $7, $8)`,
		a.UserUID, models.StatusPremium, a.StartedAt, a.ExpiresAt, firstTimeUsed,
		a.PricePaid, a.Gateway, nullString(a.TxHash))
	return err
}

// ManualUpgrade выдаёт премиум вручную. Право на первую цену не меняется.
func (s *Storage) ManualUpgrade(ctx context.Context, a models.Activation) error {
	const op = "storage.ManualUpgrade"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE uid = $1)`, a.UserUID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return errUserMissing
		}
		return activate(ctx, tx, a, false)
	})
	if errors.Is(err, errUserMissing) {
		return notFound(op, sql.ErrNoRows)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

var errUserMissing = errors.New("user missing")

// ExpireLapsed переводит премиум-подписки с истёкшим сроком в expired
// и возвращает затронутых пользователей с адресами почты.
func (s *Storage) ExpireLapsed(ctx context.Context, now time.Time) ([]models.ExpiredSubscription, error) {
	const op = "storage.ExpireLapsed"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		WITH expired AS (
			UPDATE subscriptions
			SET status = $1, updated_at = now()
			WHERE status = $2 AND expires_at IS NOT NULL AND expires_at <= $3
			RETURNING user_uid
		)
		SELECT DISTINCT e.user_uid, COALESCE(p.email, u.email)
		FROM expired e
		JOIN users u ON u.uid = e.user_uid
		LEFT JOIN profiles p ON p.user_uid = e.user_uid`,
		models.StatusExpired, models.StatusPremium, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.ExpiredSubscription
	for rows.Next() {
		var e models.ExpiredSubscription
		if err := rows.Scan(&e.UserUID, &e.Email); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
