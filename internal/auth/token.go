package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenConfig carries the values the host supplies to the token engine.
type TokenConfig struct {
	// Secret is the base64-encoded HMAC secret.
	Secret string
	// ExpirationMillis is the token lifetime in milliseconds.
	ExpirationMillis int64
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces the wall clock used for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// TokenManager handles issuing and validating JWT tokens.
//
// A TokenManager is immutable once built and may be shared across goroutines.
type TokenManager struct {
	key    SigningKey
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenManager derives the signing key and builds a new manager.
func NewTokenManager(cfg TokenConfig, opts ...TokenOption) (*TokenManager, error) {
	if cfg.ExpirationMillis <= 0 {
		return nil, ErrInvalidExpiration
	}
	key, err := DeriveSigningKey(cfg.Secret)
	if err != nil {
		return nil, err
	}

	tm := &TokenManager{
		key: key,
		ttl: time.Duration(cfg.ExpirationMillis) * time.Millisecond,
		now: time.Now,
		// Expiry is checked separately in IsExpired, so the parser only verifies signature and structure.
		parser: jwt.NewParser(
			jwt.WithValidMethods(key.verifyMethods()),
			jwt.WithStrictDecoding(),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Expiration returns the configured token lifetime.
func (tm *TokenManager) Expiration() time.Duration {
	return tm.ttl
}

// Issue builds and signs a JWT for the username.
func (tm *TokenManager) Issue(username string) (string, error) {
	token, _, err := tm.IssueWithExpiry(username)
	return token, err
}

// IssueWithExpiry builds and signs a JWT and also reports when it expires.
func (tm *TokenManager) IssueWithExpiry(username string) (string, time.Time, error) {
	if username == "" {
		return "", time.Time{}, ErrEmptySubject
	}

	// iat and exp are carried in milliseconds, so exp-iat is exactly the lifetime.
	issuedAt := newMillisDate(tm.now())
	claims := &tokenClaims{
		Subject:   username,
		IssuedAt:  issuedAt,
		ExpiresAt: newMillisDate(issuedAt.Add(tm.ttl)),
	}

	token := jwt.NewWithClaims(tm.key.Method(), claims)
	tokenString, err := token.SignedString(tm.key.material)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// IsValid reports whether the token is well formed and carries a valid signature.
// Expired tokens are still valid; see IsExpired.
func (tm *TokenManager) IsValid(tokenStr string) bool {
	_, err := tm.parse(tokenStr)
	return err == nil
}

// IsExpired reports whether the token's expiration has passed.
// Tokens that cannot be verified, or carry no expiration, count as expired.
func (tm *TokenManager) IsExpired(tokenStr string) bool {
	claims, err := tm.parse(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !tm.now().Before(claims.ExpiresAt.Time)
}

// Validate reports whether the token is both valid and unexpired.
func (tm *TokenManager) Validate(tokenStr string) bool {
	return tm.IsValid(tokenStr) && !tm.IsExpired(tokenStr)
}

// ExtractSubject returns the username of a signature-verified token.
func (tm *TokenManager) ExtractSubject(tokenStr string) (string, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUntrustedToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrUntrustedToken)
	}
	return claims.Subject, nil
}

func (tm *TokenManager) parse(tokenStr string) (claims *tokenClaims, err error) {
	// Callers rely on parse never panicking on untrusted input.
	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, fmt.Errorf("parse token: %v", r)
		}
	}()

	parsed, err := tm.parser.ParseWithClaims(tokenStr, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.key.material, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
