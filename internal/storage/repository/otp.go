package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// CreateOTP сохраняет новый код и гасит все прежние неиспользованные коды
// для того же адреса и назначения.
func (s *Storage) CreateOTP(ctx context.Context, code models.OTPCode) error {
	const op = "storage.CreateOTP"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE otp_codes SET used_at = now()
			WHERE email = $1 AND purpose = $2 AND used_at IS NULL`,
			code.Email, code.Purpose); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO otp_codes (email, purpose, code_hash, expires_at)
			VALUES ($1, $2, $3, $4)`,
			code.Email, code.Purpose, code.CodeHash, code.ExpiresAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetActiveOTP возвращает действующий код для адреса и назначения.
func (s *Storage) GetActiveOTP(ctx context.Context, email, purpose string, now time.Time) (*models.OTPCode, error) {
	const op = "storage.GetActiveOTP"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var c models.OTPCode
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, email, purpose, code_hash, expires_at
		FROM otp_codes
		WHERE email = $1 AND purpose = $2 AND used_at IS NULL AND expires_at > $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, email, purpose, now).
		Scan(&c.ID, &c.Email, &c.Purpose, &c.CodeHash, &c.ExpiresAt)
	if err != nil {
		return nil, notFound(op, err)
	}
	return &c, nil
}

// ConsumeOTP помечает код использованным. Возвращает false, если код уже использован.
func (s *Storage) ConsumeOTP(ctx context.Context, id int) (bool, error) {
	const op = "storage.ConsumeOTP"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE otp_codes SET used_at = now() WHERE id = $1 AND used_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}
