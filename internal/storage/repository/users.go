package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// CreateAccount в одной транзакции создаёт пользователя, профиль,
// бесплатную подписку и строку индекса нормализованных адресов.
func (s *Storage) CreateAccount(ctx context.Context, user models.User, displayName, normalizedEmail string) error {
	const op = "storage.CreateAccount"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (uid, email, password_hash) VALUES ($1, $2, $3)`,
			user.UUID, user.Email, user.PasswordHash); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (user_uid, email, display_name) VALUES ($1, $2, $3)`,
			user.UUID, user.Email, displayName); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO subscriptions (user_uid, status, is_first_time_user) VALUES ($1, $2, true)`,
			user.UUID, models.StatusFree); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO normalized_emails (normalized_email, user_uid) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			normalizedEmail, user.UUID)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EmailExists проверяет, занят ли адрес.
func (s *Storage) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "storage.EmailExists"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// GetUserByEmail возвращает пользователя по адресу почты.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var u models.User
	err := s.DB.QueryRowContext(ctx,
		`SELECT uid, email, password_hash, created_at FROM users WHERE email = $1`, email).
		Scan(&u.UUID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, notFound(op, err)
	}
	return &u, nil
}

// GetUserByUID возвращает пользователя по идентификатору.
func (s *Storage) GetUserByUID(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUserByUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var u models.User
	err := s.DB.QueryRowContext(ctx,
		`SELECT uid, email, password_hash, created_at FROM users WHERE uid = $1`, userUID).
		Scan(&u.UUID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, notFound(op, err)
	}
	return &u, nil
}

// UpdatePassword меняет хэш пароля.
func (s *Storage) UpdatePassword(ctx context.Context, userUID, passwordHash string) error {
	const op = "storage.UpdatePassword"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET password_hash = $2 WHERE uid = $1`, userUID, passwordHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectAffected(op, res)
}

// HasRole проверяет наличие роли у пользователя.
func (s *Storage) HasRole(ctx context.Context, userUID, role string) (bool, error) {
	const op = "storage.HasRole"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_uid = $1 AND role = $2)`,
		userUID, role).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// GrantRole выдаёт роль пользователю.
func (s *Storage) GrantRole(ctx context.Context, userUID, role string) error {
	const op = "storage.GrantRole"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO user_roles (user_uid, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userUID, role)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteAccount удаляет подписки, роли, профиль и затем самого пользователя.
// Платежи удаляются каскадно вместе с пользователем.
func (s *Storage) DeleteAccount(ctx context.Context, userUID string) error {
	const op = "storage.DeleteAccount"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM subscriptions WHERE user_uid = $1`,
			`DELETE FROM user_roles WHERE user_uid = $1`,
			`DELETE FROM profiles WHERE user_uid = $1`,
		} {
			if _, err := tx.ExecContext(ctx, q, userUID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE uid = $1`, userUID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListUsersByNormalizedEmail возвращает пользователей с тем же нормализованным
// адресом, кроме exceptUID.
func (s *Storage) ListUsersByNormalizedEmail(ctx context.Context, normalizedEmail, exceptUID string) ([]string, error) {
	const op = "storage.ListUsersByNormalizedEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT user_uid FROM normalized_emails
		 WHERE normalized_email = $1 AND user_uid::text <> $2
		 ORDER BY created_at`,
		normalizedEmail, exceptUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return uids, nil
}

func expectAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	return nil
}
