package auth

// SetCodeHasher подменяет хэширование OTP-кодов и возвращает функцию восстановления.
func SetCodeHasher(f func(string) (string, error)) func() {
	prev := hashCode
	hashCode = f
	return func() { hashCode = prev }
}
