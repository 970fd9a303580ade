package signal

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/golden-pips/internal/cache"
	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateSignal(ctx context.Context, sig models.Signal) (*models.Signal, error) {
	args := m.Called(ctx, sig)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Signal), args.Error(1)
}

func (m *MockRepository) UpdateSignal(ctx context.Context, sig models.Signal) (*models.Signal, error) {
	args := m.Called(ctx, sig)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Signal), args.Error(1)
}

func (m *MockRepository) DeleteSignal(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) ListSignals(ctx context.Context, limit, offset int) ([]*models.Signal, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Signal), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return &cache.Cache{Db: redis.NewClient(&redis.Options{Addr: mr.Addr()})}, mr
}

func validDummy() models.DummySignal {
	return models.DummySignal{
		Pair:        "xauusd",
		Type:        "buy",
		EntryPrice:  "2350.50",
		StopLoss:    "2340",
		TakeProfit1: "2360",
		TakeProfit2: "2375.25",
	}
}

func TestFromDummy(t *testing.T) {
	sig, err := FromDummy(validDummy())
	require.NoError(t, err)
	assert.Equal(t, "XAUUSD", sig.Pair)
	assert.Equal(t, models.SignalActive, sig.Status)
	assert.True(t, sig.EntryPrice.Equal(decimal.RequireFromString("2350.5")))
	assert.Nil(t, sig.Notes)

	tests := []struct {
		name   string
		mutate func(*models.DummySignal)
	}{
		{"bad type", func(d *models.DummySignal) { d.Type = "hold" }},
		{"missing stop loss", func(d *models.DummySignal) { d.StopLoss = "" }},
		{"negative tp", func(d *models.DummySignal) { d.TakeProfit1 = "-1" }},
		{"unknown status", func(d *models.DummySignal) { d.Status = "won" }},
		{"empty pair", func(d *models.DummySignal) { d.Pair = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDummy()
			tt.mutate(&d)
			_, err := FromDummy(d)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestService_UpdateAnyStatus(t *testing.T) {
	repo := new(MockRepository)
	svc := New(repo, nil, newNoopLogger())

	d := validDummy()
	d.Status = models.SignalClosed
	repo.On("UpdateSignal", mock.Anything, mock.MatchedBy(func(s models.Signal) bool {
		return s.ID == 7 && s.Status == models.SignalClosed
	})).Return(&models.Signal{ID: 7, Status: models.SignalClosed}, nil).Once()

	got, err := svc.Update(context.Background(), 7, d)
	require.NoError(t, err)
	assert.Equal(t, models.SignalClosed, got.Status)

	d.Status = models.SignalActive
	repo.On("UpdateSignal", mock.Anything, mock.MatchedBy(func(s models.Signal) bool {
		return s.ID == 7 && s.Status == models.SignalActive
	})).Return(&models.Signal{ID: 7, Status: models.SignalActive}, nil).Once()
	_, err = svc.Update(context.Background(), 7, d)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_ListCachedAndInvalidated(t *testing.T) {
	c, mr := newCache(t)
	repo := new(MockRepository)
	svc := New(repo, c, newNoopLogger())
	ctx := context.Background()

	first := []*models.Signal{{ID: 1, Pair: "EURUSD"}}
	repo.On("ListSignals", mock.Anything, DefaultLimit, 0).Return(first, nil).Once()

	got, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.True(t, mr.Exists(cache.KeySignals))

	got, err = svc.List(ctx, DefaultLimit, 0)
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", got[0].Pair)
	repo.AssertNumberOfCalls(t, "ListSignals", 1)

	repo.On("DeleteSignal", mock.Anything, 1).Return(nil).Once()
	require.NoError(t, svc.Delete(ctx, 1))
	assert.False(t, mr.Exists(cache.KeySignals))

	repo.On("ListSignals", mock.Anything, DefaultLimit, 0).Return([]*models.Signal{}, nil).Once()
	got, err = svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_CreateSetsAuthorAndInvalidates(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set(cache.KeySignals, "[]"))
	repo := new(MockRepository)
	svc := New(repo, c, newNoopLogger())

	repo.On("CreateSignal", mock.Anything, mock.MatchedBy(func(s models.Signal) bool {
		return s.CreatedBy == "admin-uid" && s.Type == "buy"
	})).Return(&models.Signal{ID: 3}, nil).Once()

	created, err := svc.Create(context.Background(), "admin-uid", validDummy())
	require.NoError(t, err)
	assert.Equal(t, 3, created.ID)
	assert.False(t, mr.Exists(cache.KeySignals))
}

func TestService_CreateValidationSkipsRepo(t *testing.T) {
	repo := new(MockRepository)
	svc := New(repo, nil, newNoopLogger())
	d := validDummy()
	d.EntryPrice = "abc"
	_, err := svc.Create(context.Background(), "admin", d)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	repo.AssertNotCalled(t, "CreateSignal", mock.Anything, mock.Anything)
}
