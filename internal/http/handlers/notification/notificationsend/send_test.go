package notificationsend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/golden-pips/internal/http/middlewarectx"
	"github.com/magabrotheeeer/golden-pips/internal/models"
	"github.com/magabrotheeeer/golden-pips/internal/services/notification"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Dispatch(ctx context.Context, senderUID string, req notification.Request) (*models.DispatchResult, error) {
	args := m.Called(ctx, senderUID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DispatchResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSendHandler_ServeHTTP(t *testing.T) {
	const adminUID = "admin-1"

	tests := []struct {
		name           string
		body           string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "premium segment",
			body: `{"title":"New signal","body":"XAUUSD buy","audience":"premium","data":{"signal_id":"7"}}`,
			setupMocks: func(s *MockService) {
				s.On("Dispatch", mock.Anything, adminUID, notification.Request{
					Title:    "New signal",
					Body:     "XAUUSD buy",
					Audience: "premium",
					Data:     map[string]string{"signal_id": "7"},
				}).Return(&models.DispatchResult{Targeted: 1201, Success: 1190, Failure: 11, Batches: 3}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"targeted":1201,"success":1190,"failure":11,"batches":3}`,
		},
		{
			name:           "unknown audience",
			body:           `{"title":"t","body":"b","audience":"vip"}`,
			setupMocks:     func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "missing title",
			body:           `{"body":"b","audience":"all"}`,
			setupMocks:     func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "invalid JSON",
			body:           `[]`,
			setupMocks:     func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "recipient lookup fails",
			body: `{"title":"t","body":"b","audience":"all"}`,
			setupMocks: func(s *MockService) {
				s.On("Dispatch", mock.Anything, adminUID, mock.Anything).
					Return(nil, errors.New("storage.ListPushRecipients: timeout")).Once()
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

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/notifications", bytes.NewBufferString(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, adminUID))
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
