package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Verify(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "argon2id$"))

	assert.NoError(t, VerifyPassword("correct-horse-battery", hash))
	assert.Error(t, VerifyPassword("wrong-password", hash))
}

func TestHashPassword_UniqueSalt(t *testing.T) {
	a, err := HashPassword("same-password")
	require.NoError(t, err)
	b, err := HashPassword("same-password")
	require.NoError(t, err)

	// Случайная соль: хеши одного пароля различаются
	assert.NotEqual(t, a, b)
	assert.NoError(t, VerifyPassword("same-password", a))
	assert.NoError(t, VerifyPassword("same-password", b))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "empty", encoded: ""},
		{name: "wrong scheme", encoded: "bcrypt$abc$def"},
		{name: "missing parts", encoded: "argon2id$onlysalt"},
		{name: "bad base64", encoded: "argon2id$%%%$%%%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, VerifyPassword("password123", tt.encoded))
		})
	}
}
