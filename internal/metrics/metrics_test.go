package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/signals/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("/signals/{id}", http.MethodGet, "418"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/signals/42", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("/signals/{id}", http.MethodGet, "418")))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(PaymentIntents.WithLabelValues("created"))
	PaymentIntents.WithLabelValues("created").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PaymentIntents.WithLabelValues("created")))
}
