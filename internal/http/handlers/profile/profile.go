// Package profile обрабатывает самообслуживание профиля: имя и токен устройства.
package profile

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/golden-pips/internal/http/middlewarectx"
	"github.com/magabrotheeeer/golden-pips/internal/http/response"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// UpdateRequest изменение профиля.
type UpdateRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=64"`
}

// PushTokenRequest регистрация токена устройства. Пустая строка отключает push.
type PushTokenRequest struct {
	Token string `json:"token" validate:"max=4096"`
}

// Service операции профиля.
type Service interface {
	Profile(ctx context.Context, userUID string) (*models.Profile, error)
	UpdateDisplayName(ctx context.Context, userUID, displayName string) error
	RegisterPushToken(ctx context.Context, userUID, token string) error
}

// Handler обрабатывает маршруты /profile.
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

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusUnauthorized)
	render.JSON(w, r, response.Error("unauthorized"))
}

// Get godoc
// @Summary Профиль текущего пользователя
// @Tags Profile
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} response.ErrorResponse
// @Router /profile [get]
// @Security BearerAuth
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.get")
	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	p, err := h.service.Profile(r.Context(), userUID)
	if err != nil {
		log.Error("failed to get profile", sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, p)
}

// Update godoc
// @Summary Изменить отображаемое имя
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body UpdateRequest true "Новое имя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /profile [patch]
// @Security BearerAuth
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.update")
	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}

	var req UpdateRequest
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

	if err := h.service.UpdateDisplayName(r.Context(), userUID, req.DisplayName); err != nil {
		log.Error("failed to update profile", sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"display_name": req.DisplayName}))
}

// PushToken godoc
// @Summary Зарегистрировать токен устройства
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body PushTokenRequest true "FCM токен"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /profile/push-token [put]
// @Security BearerAuth
func (h *Handler) PushToken(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.profile.pushtoken")
	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}

	var req PushTokenRequest
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

	if err := h.service.RegisterPushToken(r.Context(), userUID, req.Token); err != nil {
		log.Error("failed to register push token", sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]bool{"registered": req.Token != ""}))
}
