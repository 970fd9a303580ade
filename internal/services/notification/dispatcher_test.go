package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/models"
	"github.com/magabrotheeeer/golden-pips/internal/pushprovider"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListPushRecipients(ctx context.Context) ([]models.PushRecipient, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PushRecipient), args.Error(1)
}

func (m *MockRepository) CreateNotification(ctx context.Context, n models.NotificationRecord) (int, error) {
	args := m.Called(ctx, n)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) ListNotifications(ctx context.Context, limit, offset int) ([]*models.NotificationRecord, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.NotificationRecord), args.Error(1)
}

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Decorate(title, body string) pushprovider.Notification {
	return pushprovider.Notification{Title: title, Body: body}
}

func (m *MockTransport) SendBatch(ctx context.Context, tokens []string, n pushprovider.Notification, data map[string]string) (pushprovider.BatchResult, error) {
	args := m.Called(ctx, tokens, n, data)
	return args.Get(0).(pushprovider.BatchResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var now = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func segmentFixture() []models.PushRecipient {
	past := now.Add(-time.Hour)
	future := now.Add(24 * time.Hour)
	return []models.PushRecipient{
		{UserUID: "expired", PushToken: "t-expired", Subscription: &models.Subscription{Status: models.StatusPremium, ExpiresAt: &past}},
		{UserUID: "active", PushToken: "t-active", Subscription: &models.Subscription{Status: models.StatusPremium, ExpiresAt: &future}},
		{UserUID: "free", PushToken: "t-free", Subscription: &models.Subscription{Status: models.StatusFree}},
	}
}

func TestSelectTokens(t *testing.T) {
	recipients := append(segmentFixture(), models.PushRecipient{UserUID: "nosub", PushToken: "t-nosub"})

	assert.Equal(t, []string{"t-active"}, SelectTokens(recipients, models.AudiencePremium, now))
	assert.Equal(t, []string{"t-expired", "t-free", "t-nosub"}, SelectTokens(recipients, models.AudienceFree, now))
	assert.Len(t, SelectTokens(recipients, models.AudienceAll, now), 4)
}

func TestBatches(t *testing.T) {
	tokens := make([]string, 1201)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("t%d", i)
	}
	batches := Batches(tokens, 500)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 500)
	assert.Len(t, batches[1], 500)
	assert.Len(t, batches[2], 201)
	assert.Empty(t, Batches(nil, 500))
}

func TestDispatcher_Dispatch_PremiumSegment(t *testing.T) {
	repo, tr := new(MockRepository), new(MockTransport)
	repo.On("ListPushRecipients", mock.Anything).Return(segmentFixture(), nil).Once()
	repo.On("CreateNotification", mock.Anything, models.NotificationRecord{
		Title: "Gold", Body: "New signal", Audience: models.AudiencePremium, SentBy: "admin",
	}).Return(1, nil).Once()
	tr.On("SendBatch", mock.Anything, []string{"t-active"}, mock.Anything, mock.Anything).
		Return(pushprovider.BatchResult{Success: 1}, nil).Once()

	d := New(repo, tr, newNoopLogger())
	d.now = func() time.Time { return now }

	res, err := d.Dispatch(context.Background(), "admin", Request{Title: "Gold", Body: "New signal", Audience: models.AudiencePremium})
	require.NoError(t, err)
	assert.Equal(t, &models.DispatchResult{Targeted: 1, Success: 1, Failure: 0, Batches: 1}, res)
	repo.AssertExpectations(t)
	tr.AssertExpectations(t)
}

func TestDispatcher_Dispatch_BatchFailureCounted(t *testing.T) {
	recipients := make([]models.PushRecipient, 0, 750)
	for i := range 750 {
		recipients = append(recipients, models.PushRecipient{UserUID: fmt.Sprint(i), PushToken: fmt.Sprintf("t%d", i)})
	}

	repo, tr := new(MockRepository), new(MockTransport)
	repo.On("ListPushRecipients", mock.Anything).Return(recipients, nil).Once()
	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(1, nil).Once()
	tr.On("SendBatch", mock.Anything, mock.MatchedBy(func(tokens []string) bool { return len(tokens) == 500 }), mock.Anything, mock.Anything).
		Return(pushprovider.BatchResult{Success: 498, Failure: 2}, nil).Once()
	tr.On("SendBatch", mock.Anything, mock.MatchedBy(func(tokens []string) bool { return len(tokens) == 250 }), mock.Anything, mock.Anything).
		Return(pushprovider.BatchResult{}, errors.New("fcm unavailable")).Once()

	d := New(repo, tr, newNoopLogger())
	res, err := d.Dispatch(context.Background(), "admin", Request{Title: "t", Body: "b", Audience: models.AudienceAll})
	require.NoError(t, err)
	assert.Equal(t, 750, res.Targeted)
	assert.Equal(t, 2, res.Batches)
	assert.Equal(t, 498, res.Success)
	assert.Equal(t, 252, res.Failure)
}

func TestDispatcher_Dispatch_RecordsEvenWithoutRecipients(t *testing.T) {
	repo, tr := new(MockRepository), new(MockTransport)
	repo.On("ListPushRecipients", mock.Anything).Return([]models.PushRecipient{}, nil).Once()
	repo.On("CreateNotification", mock.Anything, mock.Anything).Return(1, nil).Once()

	d := New(repo, tr, newNoopLogger())
	res, err := d.Dispatch(context.Background(), "admin", Request{Title: "t", Body: "b", Audience: models.AudienceFree})
	require.NoError(t, err)
	assert.Zero(t, res.Targeted)
	repo.AssertExpectations(t)
	tr.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_Dispatch_Validation(t *testing.T) {
	d := New(new(MockRepository), new(MockTransport), newNoopLogger())

	_, err := d.Dispatch(context.Background(), "admin", Request{Title: "t", Body: "b", Audience: "vip"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = d.Dispatch(context.Background(), "admin", Request{Title: " ", Body: "b", Audience: models.AudienceAll})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDispatcher_History(t *testing.T) {
	repo := new(MockRepository)
	records := []*models.NotificationRecord{{ID: 2, Title: "TP1 hit"}, {ID: 1, Title: "New signal"}}
	repo.On("ListNotifications", mock.Anything, 20, 0).Return(records, nil).Once()
	repo.On("ListNotifications", mock.Anything, 20, 20).Return(nil, errors.New("db down")).Once()

	d := New(repo, new(MockTransport), newNoopLogger())

	got, err := d.History(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	_, err = d.History(context.Background(), 20, 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification.History")
	repo.AssertExpectations(t)
}
