package models

import "time"

// Сегменты аудитории для рассылки.
const (
	AudienceAll     = "all"
	AudiencePremium = "premium"
	AudienceFree    = "free"
)

// NotificationRecord журнал рассылок, одна строка на отправку администратора.
type NotificationRecord struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Audience  string    `json:"audience"`
	SentBy    string    `json:"sent_by"`
	CreatedAt time.Time `json:"created_at"`
}

// DispatchResult итог рассылки по всем батчам.
type DispatchResult struct {
	Targeted int `json:"targeted"`
	Success  int `json:"success"`
	Failure  int `json:"failure"`
	Batches  int `json:"batches"`
}
