// Package notificationsend обрабатывает рассылку push-уведомлений администратором.
package notificationsend

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
	"github.com/magabrotheeeer/golden-pips/internal/services/notification"
)

// Request тело рассылки.
type Request struct {
	Title    string            `json:"title" validate:"required,max=120"`
	Body     string            `json:"body" validate:"required,max=1000"`
	Audience string            `json:"audience" validate:"required,oneof=all premium free"`
	Data     map[string]string `json:"data,omitempty"`
}

// Service рассылка уведомлений.
type Service interface {
	Dispatch(ctx context.Context, senderUID string, req notification.Request) (*models.DispatchResult, error)
}

// Handler обрабатывает POST /admin/notifications.
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
// @Summary Разослать уведомление
// @Description Рассылает push сегменту all, premium или free пакетами по 500 токенов
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body Request true "Уведомление"
// @Success 200 {object} models.DispatchResult
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /admin/notifications [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.send"
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

	adminUID, _ := middlewarectx.UserUIDFrom(r.Context())
	result, err := h.service.Dispatch(r.Context(), adminUID, notification.Request{
		Title:    req.Title,
		Body:     req.Body,
		Audience: req.Audience,
		Data:     req.Data,
	})
	if err != nil {
		log.Error("failed to dispatch notification", sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, result)
}
