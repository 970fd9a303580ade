package email

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"gmail dots and tag", "a.b+promo@gmail.com", "ab@gmail.com"},
		{"googlemail dots", "John.Doe@GoogleMail.com", "johndoe@googlemail.com"},
		{"outlook keeps dots", "a.b+promo@outlook.com", "a.b@outlook.com"},
		{"upper case", "TRADER@Example.COM", "trader@example.com"},
		{"surrounding spaces", "  user@mail.ru ", "user@mail.ru"},
		{"multiple plus", "x+y+z@gmail.com", "x@gmail.com"},
		{"no at sign", "Not-An-Email", "not-an-email"},
		{"already normalized", "ab@gmail.com", "ab@gmail.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	local := gen.RegexMatch(`[a-zA-Z0-9._+-]{1,16}`)
	domain := gen.OneConstOf("gmail.com", "GoogleMail.com", "outlook.com", "proton.me", "yandex.ru")

	properties.Property("normalization is idempotent", prop.ForAll(
		func(l, d string) bool {
			once := Normalize(l + "@" + d)
			return Normalize(once) == once
		},
		local, domain,
	))

	properties.Property("gmail local part has no dots or tags", prop.ForAll(
		func(l string) bool {
			n := Normalize(l + "@gmail.com")
			localPart := strings.TrimSuffix(n, "@gmail.com")
			return !strings.ContainsAny(localPart, ".+")
		},
		local,
	))

	properties.Property("non gmail domains keep dots", prop.ForAll(
		func(l string) bool {
			n := Normalize(l + "@outlook.com")
			head := strings.ToLower(l)
			if i := strings.Index(head, "+"); i >= 0 {
				head = head[:i]
			}
			return n == head+"@outlook.com"
		},
		local,
	))

	properties.TestingRun(t)
}
