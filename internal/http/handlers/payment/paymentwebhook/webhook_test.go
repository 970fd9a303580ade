package paymentwebhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/paymentprovider"
	"github.com/magabrotheeeer/golden-pips/internal/services/payment"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) VerifySignature(body []byte, signature string) error {
	return m.Called(body, signature).Error(0)
}

func (m *MockService) HandleWebhook(ctx context.Context, p paymentprovider.IPNPayload) (*payment.WebhookResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const ipnBody = `{"payment_id":5077125051,"payment_status":"finished","order_id":"golden_pips_6f1c2b9e-3f57-4d8e-9a55-0d2b8c1e7a10_1740823200000","price_amount":25,"actually_paid":25.01,"pay_currency":"usdtbsc","extra":"ignored"}`

func TestWebhookHandler_ServeHTTP(t *testing.T) {
	expires := time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		body           string
		signature      string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:      "processed",
			body:      ipnBody,
			signature: "sig",
			setupMocks: func(s *MockService) {
				s.On("VerifySignature", []byte(ipnBody), "sig").Return(nil).Once()
				s.On("HandleWebhook", mock.Anything, mock.MatchedBy(func(p paymentprovider.IPNPayload) bool {
					return string(p.PaymentID) == "5077125051" && p.PaymentStatus == "finished"
				})).Return(&payment.WebhookResult{
					Status:        payment.WebhookProcessed,
					PaymentStatus: "finished",
					UserUID:       "6f1c2b9e-3f57-4d8e-9a55-0d2b8c1e7a10",
					ExpiresAt:     &expires,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"processed","payment_status":"finished","user_id":"6f1c2b9e-3f57-4d8e-9a55-0d2b8c1e7a10","expires_at":"2025-03-31T10:00:00Z"}`,
		},
		{
			name:      "bad signature",
			body:      ipnBody,
			signature: "forged",
			setupMocks: func(s *MockService) {
				s.On("VerifySignature", []byte(ipnBody), "forged").
					Return(fmt.Errorf("%w: invalid ipn signature", apperr.ErrUnauthorized)).Once()
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized: invalid ipn signature"}`,
		},
		{
			name: "invalid json",
			body: `{not json`,
			setupMocks: func(s *MockService) {
				s.On("VerifySignature", mock.Anything, "").Return(nil).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "malformed order id",
			body: ipnBody,
			setupMocks: func(s *MockService) {
				s.On("VerifySignature", mock.Anything, "").Return(nil).Once()
				s.On("HandleWebhook", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("payment.HandleWebhook: %w: malformed order id", apperr.ErrValidation)).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"validation failed: malformed order id"}`,
		},
		{
			name: "storage failure",
			body: ipnBody,
			setupMocks: func(s *MockService) {
				s.On("VerifySignature", mock.Anything, "").Return(nil).Once()
				s.On("HandleWebhook", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("storage.ConfirmPayment: connection reset")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)
			handler := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewBufferString(tt.body))
			if tt.signature != "" {
				req.Header.Set(paymentprovider.SignatureHeader, tt.signature)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
