package passwordreset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) RequestPasswordReset(ctx context.Context, email string) {
	m.Called(ctx, email)
}

func (m *MockService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	return m.Called(ctx, email, code, newPassword).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRequestHandler_SameResponseForAnyAddress(t *testing.T) {
	svc := new(MockService)
	svc.On("RequestPasswordReset", mock.Anything, "known@example.com").Once()
	svc.On("RequestPasswordReset", mock.Anything, "unknown@example.com").Once()
	handler := NewRequest(newNoopLogger(), svc)

	send := func(email string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/password-reset",
			bytes.NewBufferString(`{"email":"`+email+`"}`))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	known := send("known@example.com")
	unknown := send("unknown@example.com")

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	svc.AssertExpectations(t)
}

func TestRequestHandler_InvalidEmail(t *testing.T) {
	svc := new(MockService)
	handler := NewRequest(newNoopLogger(), svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/password-reset", bytes.NewBufferString(`{"email":"nope"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertNotCalled(t, "RequestPasswordReset", mock.Anything, mock.Anything)
}

func TestConfirmHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			body: `{"email":"a@example.com","code":"123456","new_password":"new-password-1"}`,
			setupMocks: func(s *MockService) {
				s.On("ConfirmPasswordReset", mock.Anything, "a@example.com", "123456", "new-password-1").Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"message":"password updated"}}`,
		},
		{
			name: "wrong code",
			body: `{"email":"a@example.com","code":"000000","new_password":"new-password-1"}`,
			setupMocks: func(s *MockService) {
				s.On("ConfirmPasswordReset", mock.Anything, "a@example.com", "000000", "new-password-1").
					Return(fmt.Errorf("auth.ConfirmPasswordReset: %w", apperr.ErrNotFound)).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid or expired request"}`,
		},
		{
			name:           "code must be six digits",
			body:           `{"email":"a@example.com","code":"12ab","new_password":"new-password-1"}`,
			setupMocks:     func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "short password",
			body:           `{"email":"a@example.com","code":"123456","new_password":"short"}`,
			setupMocks:     func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)
			handler := NewConfirm(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/password-reset/confirm", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
