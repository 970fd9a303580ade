// Package email содержит каноникализацию адресов электронной почты.
// Нормализованный адрес используется только для поиска дубликатов
// аккаунтов и никогда для входа.
package email

import "strings"

var dotInsensitiveDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
}

// Normalize приводит адрес к каноническому виду: нижний регистр,
// без суффикса после "+" и без точек в локальной части для Gmail.
// Адрес без "@" возвращается в нижнем регистре без других изменений.
func Normalize(address string) string {
	lower := strings.ToLower(strings.TrimSpace(address))
	at := strings.LastIndex(lower, "@")
	if at < 0 {
		return lower
	}
	local, domain := lower[:at], lower[at+1:]

	if i := strings.Index(local, "+"); i >= 0 {
		local = local[:i]
	}
	if _, ok := dotInsensitiveDomains[domain]; ok {
		local = strings.ReplaceAll(local, ".", "")
	}
	return local + "@" + domain
}
