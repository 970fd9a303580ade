// Package ratelimit реализует журнал попыток со скользящим окном в redis.
// Каждая попытка хранится в отсортированном множестве ratelimit:<operation>:<userUID>
// со временем в миллисекундах в качестве score.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OperationCreatePayment операция создания платежа.
const OperationCreatePayment = "create_payment"

// Проверка и запись попытки выполняются одним скриптом, поэтому
// параллельные запросы одного пользователя не проскочат лимит.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Ledger журнал попыток со скользящим окном.
type Ledger struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// New создает Ledger: не больше limit попыток за window.
func New(client *redis.Client, limit int, window time.Duration) *Ledger {
	return &Ledger{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Key ключ журнала для операции и пользователя.
func Key(operation, userUID string) string {
	return "ratelimit:" + operation + ":" + userUID
}

// Allow атомарно проверяет лимит и, если он не исчерпан, записывает попытку.
// Отказ ничего не записывает.
func (l *Ledger) Allow(ctx context.Context, operation, userUID string) (bool, error) {
	const op = "ratelimit.Allow"
	now := l.now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	res, err := allowScript.Run(ctx, l.client,
		[]string{Key(operation, userUID)},
		now, l.window.Milliseconds(), l.limit, member,
	).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return res == 1, nil
}

// Remaining возвращает, сколько попыток осталось в текущем окне.
func (l *Ledger) Remaining(ctx context.Context, operation, userUID string) (int, error) {
	const op = "ratelimit.Remaining"
	n, err := l.count(ctx, operation, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return max(l.limit-int(n), 0), nil
}

func (l *Ledger) count(ctx context.Context, operation, userUID string) (int64, error) {
	from := strconv.FormatInt(l.now().Add(-l.window).UnixMilli()+1, 10)
	return l.client.ZCount(ctx, Key(operation, userUID), from, "+inf").Result()
}
