// Package apperr описывает классы ошибок бизнес-логики и их HTTP-статусы.
// Сервисы оборачивают сентинелы через fmt.Errorf("%w: ..."), обработчики
// определяют статус через errors.Is.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized нет сессии или она недействительна.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden пользователь аутентифицирован, но не имеет нужной роли.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation отсутствуют или некорректны обязательные поля.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited превышен лимит попыток.
	ErrRateLimited = errors.New("too many requests")
	// ErrUpstream ошибка внешнего провайдера (шлюз, почта, push).
	ErrUpstream = errors.New("upstream provider failed")
	// ErrNotFound запись не найдена. Отдаётся как 400, чтобы не раскрывать существование.
	ErrNotFound = errors.New("not found")
)

// Status возвращает HTTP-статус для ошибки.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage текст ошибки для клиента. Ошибки валидации и доступа
// отдаются начиная с текста сентинела, префиксы операций отрезаются.
// Внутренние детали провайдеров скрываются за fallback.
func PublicMessage(err error, fallback string) string {
	for _, sentinel := range []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrRateLimited} {
		if errors.Is(err, sentinel) {
			return fromSentinel(err, sentinel)
		}
	}
	if errors.Is(err, ErrNotFound) {
		return "invalid or expired request"
	}
	return fallback
}

func fromSentinel(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()); i >= 0 {
		return msg[i:]
	}
	return sentinel.Error()
}
