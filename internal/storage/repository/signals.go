package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/golden-pips/internal/models"
)

const signalColumns = `id, pair, type, entry_price, stop_loss, take_profit_1, take_profit_2,
	status, notes, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (*models.Signal, error) {
	var (
		sig       models.Signal
		notes     sql.NullString
		createdBy sql.NullString
	)
	if err := row.Scan(&sig.ID, &sig.Pair, &sig.Type, &sig.EntryPrice, &sig.StopLoss,
		&sig.TakeProfit1, &sig.TakeProfit2, &sig.Status, &notes, &createdBy,
		&sig.CreatedAt, &sig.UpdatedAt); err != nil {
		return nil, err
	}
	if notes.Valid {
		sig.Notes = &notes.String
	}
	sig.CreatedBy = createdBy.String
	return &sig, nil
}

// CreateSignal сохраняет сигнал и возвращает его с заполненными ID и датами.
func (s *Storage) CreateSignal(ctx context.Context, sig models.Signal) (*models.Signal, error) {
	const op = "storage.CreateSignal"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO signals (pair, type, entry_price, stop_loss, take_profit_1, take_profit_2, status, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+signalColumns,
		sig.Pair, sig.Type, sig.EntryPrice, sig.StopLoss, sig.TakeProfit1, sig.TakeProfit2,
		sig.Status, sig.Notes, nullString(sig.CreatedBy))
	created, err := scanSignal(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// UpdateSignal перезаписывает поля сигнала, автор не меняется.
func (s *Storage) UpdateSignal(ctx context.Context, sig models.Signal) (*models.Signal, error) {
	const op = "storage.UpdateSignal"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `
		UPDATE signals
		SET pair = $2, type = $3, entry_price = $4, stop_loss = $5, take_profit_1 = $6,
		    take_profit_2 = $7, status = $8, notes = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+signalColumns,
		sig.ID, sig.Pair, sig.Type, sig.EntryPrice, sig.StopLoss, sig.TakeProfit1, sig.TakeProfit2,
		sig.Status, sig.Notes)
	updated, err := scanSignal(row)
	if err != nil {
		return nil, notFound(op, err)
	}
	return updated, nil
}

// GetSignal возвращает сигнал по ID.
func (s *Storage) GetSignal(ctx context.Context, id int) (*models.Signal, error) {
	const op = "storage.GetSignal"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	sig, err := scanSignal(s.DB.QueryRowContext(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(op, err)
	}
	return sig, nil
}

// DeleteSignal удаляет сигнал безвозвратно.
func (s *Storage) DeleteSignal(ctx context.Context, id int) error {
	const op = "storage.DeleteSignal"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM signals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectAffected(op, res)
}

// ListSignals возвращает сигналы, новые первыми.
func (s *Storage) ListSignals(ctx context.Context, limit, offset int) ([]*models.Signal, error) {
	const op = "storage.ListSignals"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+signalColumns+` FROM signals ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	signals := make([]*models.Signal, 0)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return signals, nil
}
