package paymentprovider

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// SignatureHeader заголовок с подписью IPN.
const SignatureHeader = "x-nowpayments-sig"

// SortedBody перекодирует JSON-объект с ключами, отсортированными на всех уровнях.
// Числа сохраняются в исходной записи.
func SortedBody(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v map[string]any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Sign считает hex HMAC-SHA512 от тела с отсортированными ключами.
func Sign(secret string, body []byte) (string, error) {
	sorted, err := SortedBody(body)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(sorted)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature сверяет подпись IPN с телом запроса.
func VerifySignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected, err := Sign(secret, body)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
