package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/metrics"
	"github.com/magabrotheeeer/golden-pips/internal/models"
	"github.com/magabrotheeeer/golden-pips/internal/paymentprovider"
)

// Результаты обработки уведомления.
const (
	WebhookProcessed        = "processed"
	WebhookAlreadyProcessed = "already_processed"
	WebhookIgnored          = "ignored"
	WebhookStatusUpdated    = "status_updated"
)

// WebhookResult ответ шлюзу.
type WebhookResult struct {
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status,omitempty"`
	UserUID       string     `json:"user_id,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// VerifySignature проверяет подпись IPN. Без секрета проверка отключена.
func (s *Service) VerifySignature(body []byte, signature string) error {
	if s.cfg.IPNSecret == "" {
		return nil
	}
	if !paymentprovider.VerifySignature(s.cfg.IPNSecret, body, signature) {
		return fmt.Errorf("%w: invalid ipn signature", apperr.ErrUnauthorized)
	}
	return nil
}

// ParseOrderID достает UID пользователя из order_id вида prefix_prefix_userUID_timestamp.
func ParseOrderID(orderID string) (string, error) {
	parts := strings.Split(orderID, "_")
	if len(parts) < 4 {
		return "", fmt.Errorf("%w: malformed order id %q", apperr.ErrValidation, orderID)
	}
	userUID := parts[2]
	if _, err := uuid.Parse(userUID); err != nil {
		return "", fmt.Errorf("%w: malformed user id in order id %q", apperr.ErrValidation, orderID)
	}
	return userUID, nil
}

// HandleWebhook применяет уведомление шлюза. Незавершенные статусы
// подтверждаются без изменений. Неуспешные меняют только платеж.
// Успешные в одной транзакции завершают платеж и активируют премиум,
// повтор того же уведомления ничего не меняет.
func (s *Service) HandleWebhook(ctx context.Context, p paymentprovider.IPNPayload) (*WebhookResult, error) {
	const op = "payment.HandleWebhook"
	log := s.log.With(
		slog.String("op", op),
		slog.String("payment_id", string(p.PaymentID)),
		slog.String("order_id", p.OrderID),
		slog.String("payment_status", p.PaymentStatus),
	)

	switch {
	case paymentprovider.IsSuccess(p.PaymentStatus):
	case paymentprovider.IsFailure(p.PaymentStatus):
		return s.applyFailure(ctx, log, p)
	default:
		metrics.Webhooks.WithLabelValues("ignored").Inc()
		log.Info("non-terminal payment status, nothing to do")
		return &WebhookResult{Status: WebhookIgnored, PaymentStatus: p.PaymentStatus}, nil
	}

	userUID, err := ParseOrderID(p.OrderID)
	if err != nil {
		metrics.Webhooks.WithLabelValues("rejected").Inc()
		log.Warn("rejected webhook", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.PaymentID == "" {
		metrics.Webhooks.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%s: %w: missing payment id", op, apperr.ErrValidation)
	}

	now := s.now().UTC()
	paid := p.ActuallyPaid
	if paid.IsZero() {
		paid = p.PriceAmount
	}
	currency := strings.ToLower(p.PriceCurrency)
	if currency == "" {
		currency = "usd"
	}
	days := s.cfg.SubscriptionDays
	if days <= 0 {
		days = 30
	}

	applied, owner, err := s.repo.ConfirmPayment(ctx, models.PaymentConfirmation{
		OrderID:    p.OrderID,
		ExternalID: string(p.PaymentID),
		Amount:     p.PriceAmount,
		Currency:   currency,
		Activation: models.Activation{
			UserUID:   userUID,
			StartedAt: now,
			ExpiresAt: now.AddDate(0, 0, days),
			PricePaid: paid,
			Gateway:   models.GatewayNOWPayments,
			TxHash:    string(p.PaymentID),
		},
	})
	if errors.Is(err, apperr.ErrNotFound) {
		metrics.Webhooks.WithLabelValues("rejected").Inc()
		log.Warn("webhook for unknown user", slog.String("user_uid", userUID))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err != nil {
		metrics.Webhooks.WithLabelValues("error").Inc()
		log.Error("failed to confirm payment", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		metrics.Webhooks.WithLabelValues("replay").Inc()
		log.Info("payment already processed")
		return &WebhookResult{Status: WebhookAlreadyProcessed, PaymentStatus: p.PaymentStatus, UserUID: owner}, nil
	}

	expiresAt := now.AddDate(0, 0, days)
	metrics.Webhooks.WithLabelValues("activated").Inc()
	log.Info("premium activated", slog.String("user_uid", owner), slog.Time("expires_at", expiresAt))
	s.notifyActivated(ctx, log, owner, expiresAt)

	return &WebhookResult{
		Status:        WebhookProcessed,
		PaymentStatus: p.PaymentStatus,
		UserUID:       owner,
		ExpiresAt:     &expiresAt,
	}, nil
}

// applyFailure переносит неуспешный статус на платеж. Если ни одна строка
// не изменилась (платеж завершен, уже в этом статусе или неизвестен),
// уведомление считается обработанным.
func (s *Service) applyFailure(ctx context.Context, log *slog.Logger, p paymentprovider.IPNPayload) (*WebhookResult, error) {
	const op = "payment.applyFailure"
	status := strings.ToLower(p.PaymentStatus)
	n, err := s.repo.UpdatePaymentStatus(ctx, p.OrderID, string(p.PaymentID), status)
	if err != nil {
		metrics.Webhooks.WithLabelValues("error").Inc()
		log.Error("failed to update payment status", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		metrics.Webhooks.WithLabelValues("replay").Inc()
		log.Info("payment status left unchanged")
		return &WebhookResult{Status: WebhookAlreadyProcessed, PaymentStatus: status}, nil
	}
	metrics.Webhooks.WithLabelValues("status_updated").Inc()
	log.Info("payment status updated", slog.Int64("rows", n))
	return &WebhookResult{Status: WebhookStatusUpdated, PaymentStatus: status}, nil
}

// notifyActivated ставит в очередь письмо об активации. Ошибки только логируются.
func (s *Service) notifyActivated(ctx context.Context, log *slog.Logger, userUID string, expiresAt time.Time) {
	if s.emails == nil {
		return
	}
	user, err := s.repo.GetUserByUID(ctx, userUID)
	if err != nil {
		log.Warn("failed to load user for activation email", sl.Err(err))
		return
	}
	msg := models.EmailMessage{
		To:      user.Email,
		Subject: "Golden Pips Premium активирован",
		Body: fmt.Sprintf("Оплата получена. Premium-доступ к сигналам Golden Pips действует до %s (UTC).",
			expiresAt.Format("02.01.2006 15:04")),
	}
	if err := s.emails.Publish(rabbitmq.RoutingKeyEmail, msg); err != nil {
		log.Warn("failed to enqueue activation email", sl.Err(err))
	}
}
