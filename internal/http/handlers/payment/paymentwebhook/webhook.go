// Package paymentwebhook принимает IPN-уведомления NOWPayments.
package paymentwebhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/golden-pips/internal/http/response"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/paymentprovider"
	"github.com/magabrotheeeer/golden-pips/internal/services/payment"
)

const maxBodyBytes = 1 << 20

// Service обработка уведомлений шлюза.
type Service interface {
	VerifySignature(body []byte, signature string) error
	HandleWebhook(ctx context.Context, p paymentprovider.IPNPayload) (*payment.WebhookResult, error)
}

// Handler обрабатывает POST /payments/webhook.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary IPN NOWPayments
// @Description Применяет статус платежа. Успешная оплата активирует премиум на 30 дней, повтор возвращает already_processed.
// @Tags Payments
// @Accept json
// @Produce json
// @Param x-nowpayments-sig header string false "HMAC-SHA512 подпись тела"
// @Param request body paymentprovider.IPNPayload true "Уведомление шлюза"
// @Success 200 {object} payment.WebhookResult
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	defer r.Body.Close()

	if err := h.service.VerifySignature(body, r.Header.Get(paymentprovider.SignatureHeader)); err != nil {
		log.Warn("invalid or missing webhook signature", sl.Err(err))
		response.ServiceError(w, r, err, "invalid signature")
		return
	}

	var payload paymentprovider.IPNPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to decode webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), payload)
	if err != nil {
		log.Error("failed to process webhook", sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, result)
}
