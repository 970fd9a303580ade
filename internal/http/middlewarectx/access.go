package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/golden-pips/internal/http/response"
	"github.com/magabrotheeeer/golden-pips/internal/lib/sl"
)

// AdminChecker проверяет роль администратора по хранилищу ролей.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userUID string) (bool, error)
}

// PremiumChecker проверяет премиум-доступ пользователя.
type PremiumChecker interface {
	HasPremium(ctx context.Context, userUID string) (bool, error)
}

// AdminMiddleware пропускает только администраторов. Роль берётся из хранилища,
// а не из токена.
func AdminMiddleware(log *slog.Logger, admins AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID, ok := UserUIDFrom(r.Context())
			if !ok {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			admin, err := admins.IsAdmin(r.Context(), userUID)
			if err != nil {
				log.Error("failed to check role", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}
			if !admin {
				log.Warn("admin access denied", slog.String("user_uid", userUID))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("forbidden"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PremiumMiddleware пропускает пользователей с активным премиумом и администраторов.
func PremiumMiddleware(log *slog.Logger, subs PremiumChecker, admins AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID, ok := UserUIDFrom(r.Context())
			if !ok {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			premium, err := subs.HasPremium(r.Context(), userUID)
			if err != nil {
				log.Error("failed to get subscription status", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}
			if !premium {
				admin, err := admins.IsAdmin(r.Context(), userUID)
				if err != nil {
					log.Error("failed to check role", sl.Err(err))
					w.WriteHeader(http.StatusInternalServerError)
					render.JSON(w, r, response.Error("internal service error"))
					return
				}
				if !admin {
					w.WriteHeader(http.StatusForbidden)
					render.JSON(w, r, response.Error("premium subscription required"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
