// Package signup обрабатывает завершение регистрации по коду из письма.
package signup

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
	"github.com/magabrotheeeer/golden-pips/internal/services/auth"
)

// Request тело запроса регистрации.
type Request struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"max=64"`
}

// Service регистрация пользователя.
type Service interface {
	Signup(ctx context.Context, in auth.SignupInput) (*auth.Session, error)
}

// Handler обрабатывает POST /auth/signup.
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
// @Summary Завершить регистрацию
// @Description Проверяет код, создает пользователя с бесплатной подпиской и возвращает сессию
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Данные регистрации"
// @Success 201 {object} auth.Session
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /auth/signup [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signup"
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

	session, err := h.service.Signup(r.Context(), auth.SignupInput{
		Email:       req.Email,
		Code:        req.Code,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		log.Error("signup failed", sl.Err(err))
		response.ServiceError(w, r, err, "internal error")
		return
	}

	log.Info("user signed up", slog.String("user_uid", session.UserUID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, session)
}
