// Package paymentcreate обрабатывает создание платежа за премиум-подписку.
package paymentcreate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/golden-pips/internal/http/middlewarectx"
	"github.com/magabrotheeeer/golden-pips/internal/http/response"
	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// Service определяет интерфейс для создания платежа.
type Service interface {
	CreateIntent(ctx context.Context, userUID string) (*models.PaymentIntent, error)
}

// Handler обрабатывает запросы на создание платежа.
type Handler struct {
	log            *slog.Logger // Логгер для записи информации и ошибок
	paymentService Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, ps Service) *Handler {
	return &Handler{
		log:            log,
		paymentService: ps,
	}
}

// ServeHTTP godoc
// @Summary Создать платеж
// @Description Создает счет в NOWPayments по текущей цене пользователя. Не больше 3 попыток за 10 минут.
// @Tags Payments
// @Produce json
// @Success 200 {object} models.PaymentIntent "Ссылка на оплату"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 429 {object} response.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} response.ErrorResponse "Ошибка создания платежа"
// @Router /payments [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, _ := middlewarectx.UserUIDFrom(r.Context())
	intent, err := h.paymentService.CreateIntent(r.Context(), userUID)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrUnauthorized), errors.Is(err, apperr.ErrRateLimited):
			log.Warn("payment rejected", sl.Err(err))
			response.ServiceError(w, r, err, "payment initiation failed")
		default:
			log.Error("failed to create payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("payment initiation failed"))
		}
		return
	}

	log.Info("payment intent created", slog.String("payment_id", intent.PaymentID))
	render.JSON(w, r, intent)
}
