package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы подписки.
const (
	StatusFree    = "free"
	StatusPremium = "premium"
	StatusExpired = "expired"
)

// Subscription строка истории подписки пользователя. Актуальной считается
// самая свежая строка.
type Subscription struct {
	ID              int              `json:"id"`
	UserUID         string           `json:"user_uid"`
	Status          string           `json:"status"`
	IsFirstTimeUser bool             `json:"is_first_time_user"`
	AbuseDetected   bool             `json:"abuse_detected"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	PricePaid       *decimal.Decimal `json:"price_paid,omitempty"`
	PaymentGateway  *string          `json:"payment_gateway,omitempty"`
	PaymentTxHash   *string          `json:"payment_tx_hash,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// IsPremium единое правило определения премиум-доступа:
// статус premium и срок не истёк (или не задан).
func IsPremium(sub *Subscription, now time.Time) bool {
	if sub == nil || sub.Status != StatusPremium {
		return false
	}
	return sub.ExpiresAt == nil || sub.ExpiresAt.After(now)
}

// GatewayManual источник премиума, выданного администратором.
const GatewayManual = "manual"

// ExpiredSubscription подписка, переведённая планировщиком в expired.
type ExpiredSubscription struct {
	UserUID string
	Email   string
}

// Activation набор полей, которые выставляются подписке при активации премиума.
type Activation struct {
	UserUID   string
	StartedAt time.Time
	ExpiresAt time.Time
	PricePaid decimal.Decimal
	Gateway   string
	TxHash    string
}
