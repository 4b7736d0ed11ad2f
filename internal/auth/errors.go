package auth

import "errors"

var (
	// ErrInvalidKeyMaterial is returned when the configured secret cannot be used as an HMAC key.
	ErrInvalidKeyMaterial = errors.New("invalid key material")
	// ErrInvalidExpiration is returned when the token lifetime is not positive.
	ErrInvalidExpiration = errors.New("token expiration must be positive")
	// ErrUntrustedToken is returned when a token's signature or structure cannot be verified.
	ErrUntrustedToken = errors.New("untrusted token")
	// ErrEmptySubject is returned when issuing a token without a username.
	ErrEmptySubject = errors.New("token subject is empty")
)
