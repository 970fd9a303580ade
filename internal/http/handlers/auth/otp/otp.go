// Package otp обрабатывает запрос кода подтверждения для регистрации.
package otp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/golden-pips/internal/http/response"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
)

// Request тело запроса кода.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Service выдача кода регистрации.
type Service interface {
	RequestSignupOTP(ctx context.Context, email string) error
}

// Handler обрабатывает POST /auth/otp.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запросить код регистрации
// @Description Отправляет 6-значный код на почту. Ответ одинаковый для свободного и занятого адреса.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Почта"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /auth/otp [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.otp"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.RequestSignupOTP(r.Context(), req.Email); err != nil {
		log.Error("failed to issue otp", sl.Err(err))
		response.ServiceError(w, r, err, "failed to send code")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]string{
		"message": "if the address can be registered, a code has been sent",
	}))
}
