// Package adminusers обрабатывает административные операции над пользователями.
package adminusers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/golden-pips/internal/http/response"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// BlockRequest тело запроса блокировки.
type BlockRequest struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

// Service операции администратора.
type Service interface {
	ManualUpgrade(ctx context.Context, userUID string) (*models.Activation, error)
	SetBlocked(ctx context.Context, userUID string, blocked bool, reason string) error
	AdminPasswordReset(ctx context.Context, userUID string) error
	DeleteAccount(ctx context.Context, userUID string) error
}

// Handler обрабатывает маршруты /admin/users/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// target достает и проверяет {id}. При ошибке ответ уже записан.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (string, bool) {
	userUID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(userUID); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return "", false
	}
	return userUID, true
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Upgrade godoc
// @Summary Выдать премиум вручную
// @Description Премиум на 30 дней без оплаты, право на первую цену не меняется
// @Tags Admin
// @Produce json
// @Param id path string true "UID пользователя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/users/{id}/upgrade [post]
// @Security BearerAuth
func (h *Handler) Upgrade(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.upgrade")
	userUID, ok := h.target(w, r)
	if !ok {
		return
	}
	a, err := h.service.ManualUpgrade(r.Context(), userUID)
	if err != nil {
		log.Error("failed to upgrade user", slog.String("user_uid", userUID), sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_id":    userUID,
		"expires_at": a.ExpiresAt,
	}))
}

// Block godoc
// @Summary Заблокировать или разблокировать пользователя
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "UID пользователя"
// @Param request body BlockRequest true "Состояние блокировки"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/users/{id}/block [put]
// @Security BearerAuth
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.block")
	userUID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.service.SetBlocked(r.Context(), userUID, req.Blocked, req.Reason); err != nil {
		log.Error("failed to change block state", slog.String("user_uid", userUID), sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_id": userUID,
		"blocked": req.Blocked,
	}))
}

// PasswordReset godoc
// @Summary Отправить пользователю код сброса пароля
// @Tags Admin
// @Produce json
// @Param id path string true "UID пользователя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/users/{id}/password-reset [post]
// @Security BearerAuth
func (h *Handler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.passwordreset")
	userUID, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.AdminPasswordReset(r.Context(), userUID); err != nil {
		log.Error("failed to issue reset code", slog.String("user_uid", userUID), sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"message": "reset code sent"}))
}

// Delete godoc
// @Summary Удалить пользователя
// @Description Удаляет подписки, роли, профиль и учётную запись в одной транзакции
// @Tags Admin
// @Produce json
// @Param id path string true "UID пользователя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/users/{id} [delete]
// @Security BearerAuth
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.delete")
	userUID, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), userUID); err != nil {
		log.Error("failed to delete account", slog.String("user_uid", userUID), sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"deleted": userUID}))
}
