package auth_test

import (
	"encoding/base64"
	"strings"
	"testing"

	jwtImpl "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/jwt-auth/internal/auth"
)

func encodedSecret(n int) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", n)))
}

func TestDeriveSigningKey_RejectsInvalidMaterial(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "empty", secret: ""},
		{name: "not base64", secret: "not*base64!"},
		{name: "url alphabet", secret: "-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_"},
		{name: "too short", secret: encodedSecret(31)},
		{name: "raw unpadded", secret: strings.TrimRight(encodedSecret(35), "=")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.DeriveSigningKey(tt.secret)
			assert.ErrorIs(t, err, auth.ErrInvalidKeyMaterial)
		})
	}
}

func TestDeriveSigningKey_PicksMethodByLength(t *testing.T) {
	tests := []struct {
		bytes  int
		method jwtImpl.SigningMethod
	}{
		{bytes: 32, method: jwtImpl.SigningMethodHS256},
		{bytes: 47, method: jwtImpl.SigningMethodHS256},
		{bytes: 48, method: jwtImpl.SigningMethodHS384},
		{bytes: 63, method: jwtImpl.SigningMethodHS384},
		{bytes: 64, method: jwtImpl.SigningMethodHS512},
		{bytes: 128, method: jwtImpl.SigningMethodHS512},
	}

	for _, tt := range tests {
		key, err := auth.DeriveSigningKey(encodedSecret(tt.bytes))
		require.NoError(t, err)
		assert.Equal(t, tt.method.Alg(), key.Method().Alg(), "key of %d bytes", tt.bytes)
		assert.Equal(t, tt.bytes*8, key.Bits())
	}
}

func TestDeriveSigningKey_Deterministic(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	first, err := auth.DeriveSigningKey(secret)
	require.NoError(t, err)
	second, err := auth.DeriveSigningKey(secret)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
