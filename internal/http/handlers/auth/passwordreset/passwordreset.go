// Package passwordreset обрабатывает сброс пароля по коду из письма.
package passwordreset

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

// Request запрос кода сброса.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// ConfirmRequest подтверждение сброса.
type ConfirmRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// Service сброс пароля.
type Service interface {
	RequestPasswordReset(ctx context.Context, email string)
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error
}

// RequestHandler обрабатывает POST /auth/password-reset.
type RequestHandler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// NewRequest создает RequestHandler.
func NewRequest(log *slog.Logger, service Service) *RequestHandler {
	return &RequestHandler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Запросить сброс пароля
// @Description Ответ одинаковый независимо от того, существует ли учётная запись
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Почта"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /auth/password-reset [post]
func (h *RequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.passwordreset.request"
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
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	h.service.RequestPasswordReset(r.Context(), req.Email)
	render.JSON(w, r, response.StatusOKWithData(map[string]string{
		"message": "if an account exists for this address, a reset code has been sent",
	}))
}

// ConfirmHandler обрабатывает POST /auth/password-reset/confirm.
type ConfirmHandler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// NewConfirm создает ConfirmHandler.
func NewConfirm(log *slog.Logger, service Service) *ConfirmHandler {
	return &ConfirmHandler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Подтвердить сброс пароля
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ConfirmRequest true "Код и новый пароль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /auth/password-reset/confirm [post]
func (h *ConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.passwordreset.confirm"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		log.Warn("password reset failed", sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"message": "password updated"}))
}
