package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// CreatePayment сохраняет платёж и возвращает его ID.
func (s *Storage) CreatePayment(ctx context.Context, p models.PaymentRecord) (int, error) {
	const op = "storage.CreatePayment"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	var id int
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO payments (user_uid, order_id, external_id, amount, currency, gateway, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		p.UserUID, nullString(p.OrderID), nullString(p.ExternalID), p.Amount, p.Currency, p.Gateway, p.Status).
		Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// ListPayments возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentRecord, error) {
	const op = "storage.ListPayments"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_uid, order_id, external_id, amount, currency, gateway, status, tx_hash, created_at, updated_at
		FROM payments
		WHERE user_uid = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var payments []*models.PaymentRecord
	for rows.Next() {
		var (
			p                   models.PaymentRecord
			orderID, externalID sql.NullString
			txHash              sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserUID, &orderID, &externalID, &p.Amount, &p.Currency,
			&p.Gateway, &p.Status, &txHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.OrderID = orderID.String
		p.ExternalID = externalID.String
		if txHash.Valid {
			p.TxHash = &txHash.String
		}
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// ConfirmPayment в одной транзакции переводит платёж в finished и, только если
// перевод произошёл именно сейчас, активирует премиум. Платёж в статусе
// finished или refunded не подтверждается повторно. Платёж ищется по order_id,
// затем по внешнему ID; если его нет, он создаётся. Повторное подтверждение
// ничего не меняет и возвращает applied = false.
// Владельцем считается пользователь из сохранённого платежа, а Activation.UserUID
// используется только для нового платежа.
func (s *Storage) ConfirmPayment(ctx context.Context, c models.PaymentConfirmation) (applied bool, userUID string, err error) {
	const op = "storage.ConfirmPayment"
	if err := checkCtx(ctx, op); err != nil {
		return false, "", err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE payments
			SET status = $3, external_id = COALESCE(external_id, $2), tx_hash = $2, updated_at = now()
			WHERE id = (
				SELECT id FROM payments
				WHERE order_id = $1 OR external_id = $2
				ORDER BY (order_id = $1) DESC NULLS LAST
				LIMIT 1
			) AND status NOT IN ($3, $4)
			RETURNING user_uid`,
			nullString(c.OrderID), c.ExternalID, models.PaymentFinished, models.PaymentRefunded).Scan(&userUID)
		switch {
		case err == nil:
			applied = true
		case errors.Is(err, sql.ErrNoRows):
			userUID = c.Activation.UserUID
			err = tx.QueryRowContext(ctx, `
				INSERT INTO payments (user_uid, order_id, external_id, amount, currency, gateway, status, tx_hash)
				SELECT $1, $2, $3, $4, $5, $6, $7, $3
				WHERE EXISTS (SELECT 1 FROM users WHERE uid = $1)
				ON CONFLICT DO NOTHING
				RETURNING id`,
				userUID, nullString(c.OrderID), c.ExternalID, c.Amount, c.Currency,
				c.Activation.Gateway, models.PaymentFinished).Scan(new(int))
			if errors.Is(err, sql.ErrNoRows) {
				return classifyMissing(ctx, tx, c)
			}
			if err != nil {
				return err
			}
			applied = true
		default:
			return err
		}

		a := c.Activation
		a.UserUID = userUID
		return activate(ctx, tx, a, true)
	})
	if errors.Is(err, errAlreadyFinished) {
		return false, userUID, nil
	}
	if errors.Is(err, errUserMissing) {
		return false, "", notFound(op, sql.ErrNoRows)
	}
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}
	return applied, userUID, nil
}

var errAlreadyFinished = errors.New("payment already finished")

// classifyMissing объясняет, почему платёж не обновился и не вставился:
// либо он уже завершён, либо пользователя нет.
func classifyMissing(ctx context.Context, tx *sql.Tx, c models.PaymentConfirmation) error {
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE order_id = $1 OR external_id = $2)`,
		nullString(c.OrderID), c.ExternalID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return errAlreadyFinished
	}
	return errUserMissing
}

// UpdatePaymentStatus меняет статус платежа без изменения подписки.
// Завершённый платёж может перейти только в refunded, refunded не меняется.
// Возвращает число изменённых строк.
func (s *Storage) UpdatePaymentStatus(ctx context.Context, orderID, externalID, status string) (int64, error) {
	const op = "storage.UpdatePaymentStatus"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE payments
		SET status = $3, external_id = COALESCE(external_id, NULLIF($2, '')), updated_at = now()
		WHERE (order_id = $1 OR external_id = NULLIF($2, ''))
			AND status <> $3
			AND status <> $5
			AND (status <> $4 OR $3 = $5)`,
		nullString(orderID), externalID, status, models.PaymentFinished, models.PaymentRefunded)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// ExpireStalePayments переводит платежи, висящие в pending дольше before, в expired.
func (s *Storage) ExpireStalePayments(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.ExpireStalePayments"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = now()
		WHERE status = $2 AND created_at < $3`,
		models.PaymentExpired, models.PaymentPending, before)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
