package auth

import (
	"encoding/base64"
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"
)

// MinKeyBytes is the smallest secret accepted for HMAC-SHA signing (256 bits).
const MinKeyBytes = 32

// SigningKey is the symmetric HMAC key shared by signing and verification.
type SigningKey struct {
	material []byte
	method   *jwt.SigningMethodHMAC
}

// DeriveSigningKey decodes a base64 secret into an HMAC signing key.
func DeriveSigningKey(secret string) (SigningKey, error) {
	if secret == "" {
		return SigningKey{}, fmt.Errorf("%w: secret is empty", ErrInvalidKeyMaterial)
	}
	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return SigningKey{}, fmt.Errorf("%w: secret is not valid base64: %v", ErrInvalidKeyMaterial, err)
	}
	if len(raw) < MinKeyBytes {
		return SigningKey{}, fmt.Errorf("%w: decoded secret is %d bits, need at least %d",
			ErrInvalidKeyMaterial, len(raw)*8, MinKeyBytes*8)
	}
	return SigningKey{material: raw, method: methodForKeyLength(len(raw))}, nil
}

// Method returns the HMAC variant used when signing with this key.
func (k SigningKey) Method() jwt.SigningMethod {
	return k.method
}

// Bits reports the key size.
func (k SigningKey) Bits() int {
	return len(k.material) * 8
}

// verifyMethods lists every HMAC algorithm this key is long enough for.
func (k SigningKey) verifyMethods() []string {
	methods := []string{jwt.SigningMethodHS256.Alg()}
	if len(k.material) >= 48 {
		methods = append(methods, jwt.SigningMethodHS384.Alg())
	}
	if len(k.material) >= 64 {
		methods = append(methods, jwt.SigningMethodHS512.Alg())
	}
	return methods
}

func methodForKeyLength(n int) *jwt.SigningMethodHMAC {
	switch {
	case n >= 64:
		return jwt.SigningMethodHS512
	case n >= 48:
		return jwt.SigningMethodHS384
	default:
		return jwt.SigningMethodHS256
	}
}
