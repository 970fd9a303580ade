// Package signalcreate обрабатывает публикацию сигнала администратором.
package signalcreate

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

// Service создание сигнала.
type Service interface {
	Create(ctx context.Context, adminUID string, in models.DummySignal) (*models.Signal, error)
}

// Handler обрабатывает POST /admin/signals.
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
// @Summary Создать сигнал
// @Tags Signals
// @Accept json
// @Produce json
// @Param request body models.DummySignal true "Сигнал"
// @Success 201 {object} models.Signal
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/signals [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.signal.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySignal
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

	adminUID, _ := middlewarectx.UserUIDFrom(r.Context())
	sig, err := h.service.Create(r.Context(), adminUID, req)
	if err != nil {
		log.Error("failed to create signal", sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}

	log.Info("signal created", slog.Int("id", sig.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, sig)
}
