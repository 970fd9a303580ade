package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы торгового сигнала. Переходы между ними не ограничены.
const (
	SignalActive = "active"
	SignalTP1Hit = "tp1_hit"
	SignalTP2Hit = "tp2_hit"
	SignalSLHit  = "sl_hit"
	SignalClosed = "closed"
)

// Signal торговая рекомендация, которую публикует администратор.
type Signal struct {
	ID          int             `json:"id"`
	Pair        string          `json:"pair"`
	Type        string          `json:"type"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	StopLoss    decimal.Decimal `json:"stop_loss"`
	TakeProfit1 decimal.Decimal `json:"take_profit_1"`
	TakeProfit2 decimal.Decimal `json:"take_profit_2"`
	Status      string          `json:"status"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DummySignal используется для приёма сигнала из JSON-запроса до валидации.
// Цены приходят строками, чтобы не терять точность.
type DummySignal struct {
	Pair        string  `json:"pair" validate:"required"`
	Type        string  `json:"type" validate:"required,oneof=buy sell"`
	EntryPrice  string  `json:"entry_price" validate:"required,numeric"`
	StopLoss    string  `json:"stop_loss" validate:"required,numeric"`
	TakeProfit1 string  `json:"take_profit_1" validate:"required,numeric"`
	TakeProfit2 string  `json:"take_profit_2" validate:"required,numeric"`
	Status      string  `json:"status" validate:"omitempty,oneof=active tp1_hit tp2_hit sl_hit closed"`
	Notes       *string `json:"notes,omitempty"`
}
