// Package metrics регистрирует метрики Prometheus сервиса.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goldenpips_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "goldenpips_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// PaymentIntents исход создания платежа: created, degraded, rate_limited, failed.
	PaymentIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goldenpips_payment_intents_total",
		Help: "Payment intent attempts by outcome.",
	}, []string{"outcome"})

	// Webhooks исход обработки IPN: activated, replay, ignored, status_updated, rejected, error.
	Webhooks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goldenpips_payment_webhooks_total",
		Help: "Payment webhooks by outcome.",
	}, []string{"outcome"})

	// AbuseDetected число срабатываний детектора злоупотреблений.
	AbuseDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldenpips_abuse_detected_total",
		Help: "First-time discount requests downgraded by abuse detection.",
	})

	// PushDeliveries результаты доставки push по статусу success или failure.
	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goldenpips_push_deliveries_total",
		Help: "Push deliveries reported by the transport.",
	}, []string{"result"})

	// EmailsSent письма, отправленные воркером, по результату.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goldenpips_emails_total",
		Help: "Outgoing emails by result.",
	}, []string{"result"})

	// SubscriptionsExpired подписки, переведённые планировщиком в expired.
	SubscriptionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldenpips_subscriptions_expired_total",
		Help: "Premium subscriptions expired by the scheduler.",
	})
)

// Middleware считает запросы и их длительность по шаблону маршрута chi.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
