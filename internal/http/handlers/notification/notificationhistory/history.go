// Package notificationhistory возвращает журнал рассылок.
package notificationhistory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/golden-pips/internal/http/response"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// Service журнал рассылок.
type Service interface {
	History(ctx context.Context, limit, offset int) ([]*models.NotificationRecord, error)
}

// Handler обрабатывает GET /admin/notifications.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary История рассылок
// @Tags Notifications
// @Produce json
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/notifications [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.history"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	records, err := h.service.History(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list notifications", sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"count":         len(records),
		"notifications": records,
	}))
}
