// Package otp генерирует одноразовые цифровые коды подтверждения.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength длина кода.
const CodeLength = 6

var upperBound = big.NewInt(1_000_000)

// Generate возвращает криптографически случайный код из CodeLength цифр.
func Generate() (string, error) {
	const op = "otp.Generate"
	n, err := rand.Int(rand.Reader, upperBound)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Valid проверяет формат кода: ровно CodeLength цифр.
func Valid(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
