// Package password хеширует и проверяет секреты пользователей: пароли
// и одноразовые коды подтверждения хранятся только в виде bcrypt-хэшей.
package password

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
)

// MinLength минимальная длина пароля.
const MinLength = 8

// bcrypt игнорирует всё после 72 байт.
const maxBytes = 72

// GetHash принимает секрет и возвращает его bcrypt‑хэш.
func GetHash(secret string) (string, error) {
	const op = "password.GetHash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым секретом.
//
// Возвращает nil, если секрет соответствует хэшу, иначе ошибку.
func CompareHash(originalHash, secret string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(secret)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Validate проверяет требования к новому паролю.
func Validate(secret string) error {
	if utf8.RuneCountInString(secret) < MinLength {
		return fmt.Errorf("%w: password must be at least %d characters", apperr.ErrValidation, MinLength)
	}
	if len(secret) > maxBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", apperr.ErrValidation, maxBytes)
	}
	return nil
}
