package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// CreateNotification записывает рассылку в журнал.
func (s *Storage) CreateNotification(ctx context.Context, n models.NotificationRecord) (int, error) {
	const op = "storage.CreateNotification"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO notifications (title, body, audience, sent_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		n.Title, n.Body, n.Audience, nullString(n.SentBy)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// ListNotifications возвращает журнал рассылок, новые первыми.
func (s *Storage) ListNotifications(ctx context.Context, limit, offset int) ([]*models.NotificationRecord, error) {
	const op = "storage.ListNotifications"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, title, body, audience, sent_by, created_at
		FROM notifications
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records := make([]*models.NotificationRecord, 0)
	for rows.Next() {
		var (
			n      models.NotificationRecord
			sentBy sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Audience, &sentBy, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		n.SentBy = sentBy.String
		records = append(records, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}
