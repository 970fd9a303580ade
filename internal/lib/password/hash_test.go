package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/golden-pips/internal/lib/apperr"
)

func TestGetHashAndCompare(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "regular password", secret: "password123"},
		{name: "password with special chars", secret: "p@ssw0rd!@#$%^&*()"},
		{name: "otp code", secret: "048213"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := GetHash(tt.secret)
			require.NoError(t, err)
			assert.NotEqual(t, tt.secret, hash)

			assert.NoError(t, CompareHash(hash, tt.secret))
			assert.Error(t, CompareHash(hash, tt.secret+"x"))
		})
	}
}

func TestGetHash_Salted(t *testing.T) {
	first, err := GetHash("same-password")
	require.NoError(t, err)
	second, err := GetHash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCompareHash_InvalidHash(t *testing.T) {
	assert.Error(t, CompareHash("not-a-bcrypt-hash", "password"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("longenough"))

	err := Validate("short")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	err = Validate(strings.Repeat("a", 73))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
