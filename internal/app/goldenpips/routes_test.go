package goldenpips

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/golden-pips/internal/config"
	"github.com/magabrotheeeer/golden-pips/internal/http/middlewarectx"
	"github.com/magabrotheeeer/golden-pips/internal/lib/jwt"
	authservice "github.com/magabrotheeeer/golden-pips/internal/services/auth"
	"github.com/magabrotheeeer/golden-pips/internal/services/notification"
	paymentservice "github.com/magabrotheeeer/golden-pips/internal/services/payment"
	signalservice "github.com/magabrotheeeer/golden-pips/internal/services/signal"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	s := Services{
		Auth:         authservice.New(nil, maker, nil, nil, log),
		Payment:      paymentservice.New(nil, nil, nil, nil, nil, config.Payment{}, log),
		Signal:       signalservice.New(nil, nil, log),
		Notification: notification.New(nil, nil, log),
		Tokens:       maker,
	}
	r := chi.NewRouter()
	RegisterRoutes(r, log, s, middlewarectx.NewIPLimiter(0.001, 1))
	return r
}

func TestRegisterRoutes(t *testing.T) {
	router := newTestRouter(t)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("protected routes require a session", func(t *testing.T) {
		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/api/v1/subscription"},
			{http.MethodPost, "/api/v1/payments"},
			{http.MethodGet, "/api/v1/signals"},
			{http.MethodPost, "/api/v1/admin/signals"},
			{http.MethodDelete, "/api/v1/admin/users/6f1c2b9e-3f57-4d8e-9a55-0d2b8c1e7a10"},
			{http.MethodPost, "/api/v1/admin/notifications"},
		} {
			rr := do(tc.method, tc.path, "")
			assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.path)
		}
	})

	t.Run("webhook is public and validates the body", func(t *testing.T) {
		rr := do(http.MethodPost, "/api/v1/payments/webhook", "{broken")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("public auth routes are rate limited per ip", func(t *testing.T) {
		first := do(http.MethodPost, "/api/v1/auth/otp", "{}")
		require.NotEqual(t, http.StatusTooManyRequests, first.Code)
		second := do(http.MethodPost, "/api/v1/auth/login", "{}")
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})

	t.Run("operational endpoints", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(http.MethodGet, "/health", "").Code)
		metrics := do(http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, metrics.Code)
		assert.Contains(t, metrics.Body.String(), "http_requests_total")
	})
}
