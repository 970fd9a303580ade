package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы платёжной записи.
const (
	PaymentPending  = "pending"
	PaymentFinished = "finished"
	PaymentFailed   = "failed"
	PaymentExpired  = "expired"
	PaymentRefunded = "refunded"
)

// GatewayNOWPayments название шлюза в платежах и подписках.
const GatewayNOWPayments = "nowpayments"

// PaymentRecord платёж, созданный через шлюз.
type PaymentRecord struct {
	ID         int             `json:"id"`
	UserUID    string          `json:"user_uid"`
	OrderID    string          `json:"order_id"`
	ExternalID string          `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Gateway    string          `json:"gateway"`
	Status     string          `json:"status"`
	TxHash     *string         `json:"tx_hash,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// PaymentIntent ответ клиенту на создание платежа.
type PaymentIntent struct {
	PaymentURL string `json:"paymentUrl"`
	PaymentID  string `json:"paymentId"`
}

// PaymentConfirmation подтверждённый платёж из вебхука вместе с активацией подписки.
// Применяется атомарно и не более одного раза на платёж.
type PaymentConfirmation struct {
	OrderID    string
	ExternalID string
	Amount     decimal.Decimal
	Currency   string
	Activation Activation
}

// Quote цена подписки для пользователя.
type Quote struct {
	Amount      decimal.Decimal `json:"amount"`
	IsFirstTime bool            `json:"is_first_time"`
}
