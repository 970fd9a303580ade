// Package payment создаёт платежи через шлюз и применяет его уведомления
// к подпискам пользователей.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/golden-pips/internal/config"
	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/metrics"
	"github.com/magabrotheeeer/golden-pips/internal/models"
	"github.com/magabrotheeeer/golden-pips/internal/paymentprovider"
	"github.com/magabrotheeeer/golden-pips/internal/ratelimit"
	"github.com/magabrotheeeer/golden-pips/internal/services/pricing"
)

// PlaceholderURL ссылка, которую получает клиент, когда шлюз не настроен.
const PlaceholderURL = "https://payments.invalid/not-configured"

// ErrInitiationFailed общая ошибка создания платежа для клиента.
var ErrInitiationFailed = errors.New("payment initiation failed")

// Repository хранилище пользователей, подписок и платежей.
type Repository interface {
	GetUserByUID(ctx context.Context, userUID string) (*models.User, error)
	GetLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	CreatePayment(ctx context.Context, p models.PaymentRecord) (int, error)
	ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentRecord, error)
	ConfirmPayment(ctx context.Context, c models.PaymentConfirmation) (bool, string, error)
	UpdatePaymentStatus(ctx context.Context, orderID, externalID, status string) (int64, error)
}

// RateLimiter журнал попыток со скользящим окном.
type RateLimiter interface {
	Allow(ctx context.Context, operation, userUID string) (bool, error)
	Remaining(ctx context.Context, operation, userUID string) (int, error)
}

// Gateway платежный шлюз.
type Gateway interface {
	CreateInvoice(ctx context.Context, req paymentprovider.InvoiceRequest) (*paymentprovider.InvoiceResponse, error)
}

// AbuseDetector проверка злоупотребления скидкой первой оплаты.
type AbuseDetector interface {
	ForceRegularPrice(ctx context.Context, email, userUID string) (bool, error)
}

// EmailQueue очередь исходящих писем.
type EmailQueue interface {
	Publish(routingKey string, message any) error
}

// Service платежная логика.
type Service struct {
	repo    Repository
	limiter RateLimiter
	gateway Gateway
	abuse   AbuseDetector
	emails  EmailQueue
	cfg     config.Payment
	log     *slog.Logger
	now     func() time.Time
}

// New создает Service. gateway может быть nil, если ключ шлюза не задан.
func New(repo Repository, limiter RateLimiter, gateway Gateway, abuse AbuseDetector,
	emails EmailQueue, cfg config.Payment, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		limiter: limiter,
		gateway: gateway,
		abuse:   abuse,
		emails:  emails,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// Quote возвращает текущую цену подписки для пользователя без побочных эффектов.
func (s *Service) Quote(ctx context.Context, userUID string) (*models.Subscription, models.Quote, error) {
	const op = "payment.Quote"
	sub, err := s.repo.GetLatestSubscription(ctx, userUID)
	if err != nil {
		return nil, models.Quote{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, pricing.Quote(sub), nil
}

// SubscriptionStatus состояние подписки пользователя вместе с ценой продления.
type SubscriptionStatus struct {
	Subscription *models.Subscription `json:"subscription"`
	IsPremium    bool                 `json:"is_premium"`
	Quote        models.Quote         `json:"quote"`
	// PaymentAttemptsLeft не заполняется, если журнал попыток недоступен.
	PaymentAttemptsLeft *int `json:"payment_attempts_left,omitempty"`
}

// Status возвращает последнюю подписку, признак премиума, цену
// и число оставшихся попыток создать платеж.
func (s *Service) Status(ctx context.Context, userUID string) (*SubscriptionStatus, error) {
	sub, quote, err := s.Quote(ctx, userUID)
	if err != nil {
		return nil, err
	}
	st := &SubscriptionStatus{
		Subscription: sub,
		IsPremium:    models.IsPremium(sub, s.now()),
		Quote:        quote,
	}
	left, err := s.limiter.Remaining(ctx, ratelimit.OperationCreatePayment, userUID)
	if err != nil {
		s.log.Warn("failed to read payment attempts", slog.String("user_uid", userUID), sl.Err(err))
		return st, nil
	}
	st.PaymentAttemptsLeft = &left
	return st, nil
}

// HasPremium проверяет премиум-доступ по единому правилу models.IsPremium.
func (s *Service) HasPremium(ctx context.Context, userUID string) (bool, error) {
	const op = "payment.HasPremium"
	sub, err := s.repo.GetLatestSubscription(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return models.IsPremium(sub, s.now()), nil
}

// resolvePrice применяет прайсинг и, если положена скидка, детектор злоупотреблений.
func (s *Service) resolvePrice(ctx context.Context, userUID string) (models.Quote, error) {
	_, quote, err := s.Quote(ctx, userUID)
	if err != nil {
		return models.Quote{}, err
	}
	if !quote.IsFirstTime {
		return quote, nil
	}

	user, err := s.repo.GetUserByUID(ctx, userUID)
	if err != nil {
		return models.Quote{}, err
	}
	force, err := s.abuse.ForceRegularPrice(ctx, user.Email, userUID)
	if err != nil {
		return models.Quote{}, err
	}
	if force {
		return models.Quote{Amount: pricing.RegularPrice, IsFirstTime: false}, nil
	}
	return quote, nil
}

// OrderID формирует идентификатор заказа <prefix>_<userUID>_<unixMillis>.
func (s *Service) OrderID(userUID string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d", s.cfg.OrderPrefix, userUID, at.UnixMilli())
}

// CreateIntent создает платеж: проверяет лимит попыток, определяет цену,
// создает счет в шлюзе и сохраняет платеж в статусе pending.
// Попытка засчитывается до обращения к шлюзу, в том числе если оно завершится ошибкой.
func (s *Service) CreateIntent(ctx context.Context, userUID string) (*models.PaymentIntent, error) {
	const op = "payment.CreateIntent"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))

	if userUID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}

	allowed, err := s.limiter.Allow(ctx, ratelimit.OperationCreatePayment, userUID)
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("failed").Inc()
		log.Error("failed to check rate limit", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInitiationFailed, err)
	}
	if !allowed {
		metrics.PaymentIntents.WithLabelValues("rate_limited").Inc()
		log.Info("payment intent rate limited")
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrRateLimited)
	}

	quote, err := s.resolvePrice(ctx, userUID)
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("failed").Inc()
		log.Error("failed to resolve price", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInitiationFailed, err)
	}

	orderID := s.OrderID(userUID, s.now())

	if s.gateway == nil || s.cfg.PaymentAPIKey == "" {
		metrics.PaymentIntents.WithLabelValues("degraded").Inc()
		log.Warn("payment gateway is not configured, returning placeholder url")
		return &models.PaymentIntent{PaymentURL: PlaceholderURL, PaymentID: orderID}, nil
	}

	invoice, err := s.gateway.CreateInvoice(ctx, paymentprovider.InvoiceRequest{
		PriceAmount:      paymentprovider.Amount(quote.Amount),
		PriceCurrency:    "usd",
		PayCurrency:      s.cfg.PayCurrency,
		OrderID:          orderID,
		OrderDescription: "Golden Pips premium subscription",
		IPNCallbackURL:   s.cfg.CallbackURL,
		SuccessURL:       s.cfg.SuccessURL,
		CancelURL:        s.cfg.CancelURL,
	})
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("failed").Inc()
		log.Error("gateway rejected invoice", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInitiationFailed, err)
	}

	_, err = s.repo.CreatePayment(ctx, models.PaymentRecord{
		UserUID:    userUID,
		OrderID:    orderID,
		ExternalID: string(invoice.ID),
		Amount:     quote.Amount,
		Currency:   "usd",
		Gateway:    models.GatewayNOWPayments,
		Status:     models.PaymentPending,
	})
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("failed").Inc()
		log.Error("failed to persist payment", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInitiationFailed, err)
	}

	metrics.PaymentIntents.WithLabelValues("created").Inc()
	log.Info("payment intent created",
		slog.String("order_id", orderID),
		slog.String("payment_id", string(invoice.ID)),
		slog.String("amount", quote.Amount.String()),
		slog.Bool("first_time", quote.IsFirstTime),
	)
	return &models.PaymentIntent{PaymentURL: invoice.InvoiceURL, PaymentID: string(invoice.ID)}, nil
}

// ListPayments возвращает платежи пользователя.
func (s *Service) ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentRecord, error) {
	const op = "payment.ListPayments"
	payments, err := s.repo.ListPayments(ctx, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}
