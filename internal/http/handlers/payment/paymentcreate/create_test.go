package paymentcreate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/golden-pips/internal/http/middlewarectx"
	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateIntent(ctx context.Context, userUID string) (*models.PaymentIntent, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntent), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestPaymentCreateHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		userUID        string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "success - create payment",
			userUID: "user123",
			setupMocks: func(ps *MockService) {
				ps.On("CreateIntent", mock.Anything, "user123").Return(&models.PaymentIntent{
					PaymentURL: "https://nowpayments.io/payment/?iid=1",
					PaymentID:  "1",
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"paymentUrl":"https://nowpayments.io/payment/?iid=1","paymentId":"1"}`,
		},
		{
			name:    "missing user UID",
			userUID: "",
			setupMocks: func(ps *MockService) {
				ps.On("CreateIntent", mock.Anything, "").
					Return(nil, fmt.Errorf("payment.CreateIntent: %w", apperr.ErrUnauthorized)).Once()
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:    "rate limited",
			userUID: "user123",
			setupMocks: func(ps *MockService) {
				ps.On("CreateIntent", mock.Anything, "user123").
					Return(nil, fmt.Errorf("payment.CreateIntent: %w", apperr.ErrRateLimited)).Once()
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   `{"status":"Error","error":"too many requests"}`,
		},
		{
			name:    "gateway failure hides details",
			userUID: "user123",
			setupMocks: func(ps *MockService) {
				ps.On("CreateIntent", mock.Anything, "user123").
					Return(nil, fmt.Errorf("%w: 401 invalid api key", apperr.ErrUpstream)).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"payment initiation failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := new(MockService)
			tt.setupMocks(ps)
			handler := New(newNoopLogger(), ps)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			ps.AssertExpectations(t)
		})
	}
}
