package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	for range 100 {
		code, err := Generate()
		require.NoError(t, err)
		assert.Len(t, code, CodeLength)
		assert.True(t, Valid(code), "code %q", code)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("000123"))
	assert.False(t, Valid("12345"))
	assert.False(t, Valid("1234567"))
	assert.False(t, Valid("12a456"))
	assert.False(t, Valid(""))
}
