// Package sender доставляет письма из очереди по SMTP.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/lib/smtp"
	"github.com/magabrotheeeer/golden-pips/internal/metrics"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// Service отправляет письма через SMTP-транспорт.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(log *slog.Logger, transport smtp.TransportInterface) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// HandleMessage обработчик сообщения из очереди писем.
func (s *Service) HandleMessage(body []byte) error {
	const op = "sender.HandleMessage"
	var message models.EmailMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if message.To == "" {
		return fmt.Errorf("%s: message has no recipient", op)
	}
	if err := s.Send(message); err != nil {
		metrics.EmailsSent.WithLabelValues("failure").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.EmailsSent.WithLabelValues("success").Inc()
	return nil
}

func (s *Service) compose(message models.EmailMessage) string {
	return strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + message.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", message.Subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		message.Body,
	}, "\r\n")
}

// Send отправляет одно письмо.
func (s *Service) Send(message models.EmailMessage) error {
	from := s.transport.GetSMTPUser()
	log := s.log.With(slog.String("to", message.To))

	client, err := s.transport.Connect()
	if err != nil {
		log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	if err := client.Rcpt(message.To); err != nil {
		log.Error("failed to set RCPT TO", sl.Err(err))
		return err
	}

	wc, err := client.Data()
	if err != nil {
		log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err := wc.Write([]byte(s.compose(message))); err != nil {
		log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err := wc.Close(); err != nil {
		log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err := client.Quit(); err != nil {
		log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	log.Info("email sent successfully")
	return nil
}
