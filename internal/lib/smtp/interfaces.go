// Package smtp предоставляет транспорт исходящей почты поверх SMTP с STARTTLS.
// Через него воркер отправки доставляет OTP-коды и письма об активации премиума.
package smtp

import "io"

// Client одно SMTP-соединение на время отправки письма.
// В тестах воркера подменяется моком.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface открывает соединения с почтовым сервером.
// GetSMTPUser возвращает адрес отправителя для поля From.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
