package domain

import "time"

// TokenStatus is the diagnostic view of a presented token.
type TokenStatus struct {
	// Valid is true when the signature and structure verify.
	Valid bool
	// Expired is true when the token is past its expiration or cannot be verified.
	Expired bool
	// Active is true only when Valid and not Expired.
	Active  bool
	Subject string
}

// IssuedToken is returned to callers after a successful login or registration.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}
