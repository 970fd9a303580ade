package paymentprovider

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Статусы платежа NOWPayments.
const (
	StatusWaiting       = "waiting"
	StatusConfirming    = "confirming"
	StatusConfirmed     = "confirmed"
	StatusSending       = "sending"
	StatusPartiallyPaid = "partially_paid"
	StatusFinished      = "finished"
	StatusFailed        = "failed"
	StatusRefunded      = "refunded"
	StatusExpired       = "expired"
)

// IsSuccess платеж завершен и деньги получены.
func IsSuccess(status string) bool {
	s := strings.ToLower(status)
	return s == StatusFinished || s == StatusConfirmed
}

// IsFailure платеж завершился без оплаты.
func IsFailure(status string) bool {
	switch strings.ToLower(status) {
	case StatusFailed, StatusRefunded, StatusExpired:
		return true
	}
	return false
}

// FlexString принимает в JSON и строку, и число.
// NOWPayments отдает идентификаторы то строкой, то числом.
type FlexString string

// UnmarshalJSON реализует json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Amount переводит сумму в число JSON без кавычек.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// InvoiceRequest тело запроса POST /invoice.
type InvoiceRequest struct {
	PriceAmount      json.Number `json:"price_amount"`
	PriceCurrency    string      `json:"price_currency"`
	PayCurrency      string      `json:"pay_currency"`
	OrderID          string      `json:"order_id"`
	OrderDescription string      `json:"order_description,omitempty"`
	IPNCallbackURL   string      `json:"ipn_callback_url,omitempty"`
	SuccessURL       string      `json:"success_url,omitempty"`
	CancelURL        string      `json:"cancel_url,omitempty"`
}

// InvoiceResponse ответ NOWPayments на создание счета.
type InvoiceResponse struct {
	ID         FlexString `json:"id"`
	OrderID    string     `json:"order_id"`
	InvoiceURL string     `json:"invoice_url"`
}

// IPNPayload уведомление о смене статуса платежа. Неизвестные поля игнорируются.
type IPNPayload struct {
	PaymentID     FlexString      `json:"payment_id"`
	PaymentStatus string          `json:"payment_status"`
	OrderID       string          `json:"order_id"`
	PriceAmount   decimal.Decimal `json:"price_amount"`
	PriceCurrency string          `json:"price_currency"`
	ActuallyPaid  decimal.Decimal `json:"actually_paid"`
	PayCurrency   string          `json:"pay_currency"`
}
