package models

import "time"

// Назначения OTP-кодов.
const (
	OTPSignup        = "signup"
	OTPPasswordReset = "password_reset"
)

// OTPCode одноразовый код подтверждения почты. Хранится только хэш.
type OTPCode struct {
	ID        int
	Email     string
	Purpose   string
	CodeHash  string
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// EmailMessage письмо, которое публикуется в очередь и отправляется воркером.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
