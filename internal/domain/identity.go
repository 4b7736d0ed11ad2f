package domain

import (
	"context"
	"errors"
)

// ErrIdentityNotFound is returned by a Lookup when no identity matches.
var ErrIdentityNotFound = errors.New("identity not found")

// Identity is the contract any pluggable user type satisfies to take part in authentication.
type Identity interface {
	GetID() int64
	GetUsername() string
	// GetPassword returns the stored password hash, never the plaintext.
	GetPassword() string
	IsActive() bool
}

// Lookup finds identities by username.
type Lookup interface {
	// FindByUsername returns ErrIdentityNotFound when no identity matches.
	FindByUsername(ctx context.Context, username string) (Identity, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}
