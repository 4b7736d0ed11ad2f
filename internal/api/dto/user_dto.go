package dto

import "time"

// CredentialsRequest is the payload for login and registration.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// IntrospectRequest carries a token to inspect.
type IntrospectRequest struct {
	Token string `json:"token"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in"`
}

// UserResponse is the public view of an identity.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Active   bool   `json:"active"`
}

// IntrospectResponse reports the individual token checks.
type IntrospectResponse struct {
	Active  bool   `json:"active"`
	Valid   bool   `json:"valid"`
	Expired bool   `json:"expired"`
	Subject string `json:"subject,omitempty"`
}
