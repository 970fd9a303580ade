package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/golden-pips/internal/migrations"
	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и накатывает миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort(nat.Port("5432/tcp")),
			).WithDeadline(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(storage))

	cleanup := func() {
		storage.DB.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory содержит методы для создания тестовых данных.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных.
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateAccount регистрирует пользователя и возвращает его UID.
func (f *TestDataFactory) CreateAccount(t *testing.T, email, normalized string) string {
	uid := uuid.NewString()
	err := f.storage.CreateAccount(context.Background(), models.User{
		UUID:         uid,
		Email:        email,
		PasswordHash: "hash",
	}, "Trader", normalized)
	require.NoError(t, err)
	return uid
}

// SetPushToken выдает пользователю токен устройства.
func (f *TestDataFactory) SetPushToken(t *testing.T, uid, token string) {
	require.NoError(t, f.storage.SetPushToken(context.Background(), uid, token))
}

// SetSubscription перезаписывает статус и срок последней подписки.
func (f *TestDataFactory) SetSubscription(t *testing.T, uid, status string, firstTime bool, expiresAt *time.Time) {
	_, err := f.storage.DB.Exec(`
		UPDATE subscriptions SET status = $2, is_first_time_user = $3, expires_at = $4
		WHERE user_uid = $1`, uid, status, firstTime, expiresAt)
	require.NoError(t, err)
}

// CreatePendingPayment создает платеж в статусе pending.
func (f *TestDataFactory) CreatePendingPayment(t *testing.T, uid, orderID, externalID string) {
	_, err := f.storage.CreatePayment(context.Background(), models.PaymentRecord{
		UserUID:    uid,
		OrderID:    orderID,
		ExternalID: externalID,
		Amount:     decimalFromInt(25),
		Currency:   "usd",
		Gateway:    models.GatewayNOWPayments,
		Status:     models.PaymentPending,
	})
	require.NoError(t, err)
}
