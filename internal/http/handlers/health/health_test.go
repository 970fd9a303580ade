package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHandler_ServeHTTP(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name   string
		db     Pinger
		status int
		body   string
	}{
		{"no database", nil, http.StatusOK, `{"status":"OK","data":{"status":"ok"}}`},
		{"database up", pingerFunc(func(context.Context) error { return nil }), http.StatusOK, `{"status":"OK","data":{"status":"ok"}}`},
		{"database down", pingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
			http.StatusServiceUnavailable, `{"status":"Error","error":"database unavailable"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			New(log, tt.db).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.status, rr.Code)
			assert.JSONEq(t, tt.body, rr.Body.String())
		})
	}
}
