// Package models содержит доменные структуры сервиса: пользователей, профили,
// подписки, платежи, сигналы и уведомления. Структуры используются
// в бизнес-логике, хранилище и при обмене сообщениями через очередь.
package models

import "time"

// RoleAdmin единственная роль, которую проверяет сервис.
const RoleAdmin = "admin"

// User представляет учётную запись пользователя.
type User struct {
	UUID         string    // Уникальный идентификатор пользователя
	Email        string    // Электронная почта, используется для входа
	PasswordHash string    // bcrypt-хэш пароля
	CreatedAt    time.Time // Дата регистрации
}

// Profile публичные и административные данные пользователя.
type Profile struct {
	UserUID       string     `json:"user_uid"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name"`
	IsBlocked     bool       `json:"is_blocked"`
	BlockedReason *string    `json:"blocked_reason,omitempty"`
	BlockedAt     *time.Time `json:"blocked_at,omitempty"`
	PushToken     *string    `json:"-"`
}

// PushRecipient профиль с токеном устройства и последней подпиской.
// Используется при рассылке уведомлений по сегментам.
type PushRecipient struct {
	UserUID      string
	PushToken    string
	Subscription *Subscription // nil, если у пользователя нет строки подписки
}
